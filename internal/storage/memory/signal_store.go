package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu      sync.RWMutex
	signals map[string]*domain.Signal     // keyed by signal_id
	results map[string]*domain.Evaluation // keyed by signal_id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		signals: make(map[string]*domain.Signal),
		results: make(map[string]*domain.Evaluation),
	}
}

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.signals[sig.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *sig
	s.signals[sig.SignalID] = &copy
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, signalID string) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.signals[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *sig
	return &copy, nil
}

// GetBySymbol retrieves all signals for a symbol, ordered by created_at ASC.
func (s *SignalStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.signals {
		if sig.Symbol == symbol {
			copy := *sig
			result = append(result, &copy)
		}
	}

	sortSignals(result)
	return result, nil
}

// GetPending retrieves unresolved signals created at or before
// maxCreatedAtMs, ordered by created_at ASC.
func (s *SignalStore) GetPending(_ context.Context, maxCreatedAtMs int64) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for id, sig := range s.signals {
		if _, resolved := s.results[id]; resolved {
			continue
		}
		if sig.CreatedAtMs <= maxCreatedAtMs {
			copy := *sig
			result = append(result, &copy)
		}
	}

	sortSignals(result)
	return result, nil
}

// UpdateResult writes the terminal evaluation for a signal. Write-once:
// a second write with a different outcome fails with ErrAlreadyResolved.
func (s *SignalStore) UpdateResult(_ context.Context, eval *domain.Evaluation) error {
	if eval == nil || eval.SignalID == "" || !eval.Outcome.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.signals[eval.SignalID]; !exists {
		return storage.ErrNotFound
	}

	if existing, resolved := s.results[eval.SignalID]; resolved {
		if existing.Outcome != eval.Outcome {
			return storage.ErrAlreadyResolved
		}
		return nil
	}

	copy := *eval
	s.results[eval.SignalID] = &copy
	return nil
}

// GetResult retrieves the evaluation for a resolved signal.
func (s *SignalStore) GetResult(_ context.Context, signalID string) (*domain.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eval, exists := s.results[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *eval
	return &copy, nil
}

// sortSignals orders by (created_at ASC, signal_id ASC) for deterministic output.
func sortSignals(signals []*domain.Signal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].CreatedAtMs != signals[j].CreatedAtMs {
			return signals[i].CreatedAtMs < signals[j].CreatedAtMs
		}
		return signals[i].SignalID < signals[j].SignalID
	})
}

var _ storage.SignalStore = (*SignalStore)(nil)
