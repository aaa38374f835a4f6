package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
)

// BarArchiveStore is an in-memory implementation of storage.BarArchiveStore.
type BarArchiveStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.PriceBar // signal_id -> timestamp_ms -> bar
}

// NewBarArchiveStore creates a new in-memory bar archive.
func NewBarArchiveStore() *BarArchiveStore {
	return &BarArchiveStore{data: make(map[string]map[int64]*domain.PriceBar)}
}

// InsertBulk archives bars for a signal. Fails entire batch on any
// duplicate (signal_id, timestamp_ms).
func (s *BarArchiveStore) InsertBulk(_ context.Context, signalID string, bars []*domain.PriceBar) error {
	if signalID == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[signalID]
	batch := make(map[int64]struct{}, len(bars))

	for _, b := range bars {
		if b == nil {
			return storage.ErrInvalidInput
		}
		if _, dup := existing[b.TimestampMs]; dup {
			return storage.ErrDuplicateKey
		}
		if _, dup := batch[b.TimestampMs]; dup {
			return storage.ErrDuplicateKey
		}
		batch[b.TimestampMs] = struct{}{}
	}

	if existing == nil {
		existing = make(map[int64]*domain.PriceBar, len(bars))
		s.data[signalID] = existing
	}
	for _, b := range bars {
		copy := *b
		existing[b.TimestampMs] = &copy
	}

	return nil
}

// GetBySignalID retrieves archived bars, ordered by timestamp ASC.
func (s *BarArchiveStore) GetBySignalID(_ context.Context, signalID string) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for _, b := range s.data[signalID] {
		copy := *b
		result = append(result, &copy)
	}

	sortBars(result)
	return result, nil
}

// GetByTimeRange retrieves archived bars within [start, end] (inclusive).
func (s *BarArchiveStore) GetByTimeRange(_ context.Context, signalID string, start, end int64) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for ts, b := range s.data[signalID] {
		if ts >= start && ts <= end {
			copy := *b
			result = append(result, &copy)
		}
	}

	sortBars(result)
	return result, nil
}

func sortBars(bars []*domain.PriceBar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].TimestampMs < bars[j].TimestampMs
	})
}

var _ storage.BarArchiveStore = (*BarArchiveStore)(nil)
