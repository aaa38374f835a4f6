// Package stub provides a deterministic BarSource for tests.
package stub

import (
	"context"
	"sync"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/marketdata"
)

// BarSource serves scripted bars keyed by symbol. Safe for concurrent
// use; records fetch calls for assertions.
type BarSource struct {
	mu    sync.Mutex
	bars  map[string][]*domain.PriceBar
	err   error
	calls []Call
}

// Call records one FetchBars invocation.
type Call struct {
	Symbol  string
	StartMs int64
	Limit   int
}

// NewBarSource creates an empty stub source.
func NewBarSource() *BarSource {
	return &BarSource{bars: make(map[string][]*domain.PriceBar)}
}

// SetBars scripts the bar sequence returned for symbol.
func (s *BarSource) SetBars(symbol string, bars []*domain.PriceBar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[symbol] = bars
}

// SetError makes every subsequent fetch fail with err.
func (s *BarSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns the recorded fetch calls.
func (s *BarSource) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// FetchBars returns the scripted bars opening strictly after startMs.
func (s *BarSource) FetchBars(_ context.Context, symbol string, startMs int64, limit int) ([]*domain.PriceBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Symbol: symbol, StartMs: startMs, Limit: limit})
	if s.err != nil {
		return nil, s.err
	}

	var out []*domain.PriceBar
	for _, b := range s.bars[symbol] {
		if b.TimestampMs > startMs {
			out = append(out, b)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ marketdata.BarSource = (*BarSource)(nil)
