// Package cooldown gates signal generation per symbol. It replaces the
// module-global last-signal map of earlier generator revisions with an
// injected collaborator.
package cooldown

import "sync"

// Tracker decides whether a symbol may emit a new signal and records
// emissions. Implementations must be safe for concurrent use.
type Tracker interface {
	// CanGenerate reports whether symbol is outside its cooldown window
	// at the given time.
	CanGenerate(symbol string, nowMs int64) bool

	// Record marks a signal emission for symbol at the given time.
	Record(symbol string, nowMs int64)
}

// MemoryTracker is an in-memory Tracker with a fixed cooldown interval.
type MemoryTracker struct {
	mu         sync.Mutex
	intervalMs int64
	last       map[string]int64
}

// NewMemoryTracker creates a tracker with the given cooldown interval.
func NewMemoryTracker(intervalMs int64) *MemoryTracker {
	return &MemoryTracker{
		intervalMs: intervalMs,
		last:       make(map[string]int64),
	}
}

// CanGenerate reports whether the cooldown for symbol has elapsed.
// Symbols never seen before are always allowed.
func (t *MemoryTracker) CanGenerate(symbol string, nowMs int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.last[symbol]
	if !seen {
		return true
	}
	return nowMs-last >= t.intervalMs
}

// Record marks an emission for symbol.
func (t *MemoryTracker) Record(symbol string, nowMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[symbol] = nowMs
}

var _ Tracker = (*MemoryTracker)(nil)
