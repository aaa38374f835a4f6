package storage

import (
	"context"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
)

// SignalStore provides access to signal records. Signals are immutable
// except for the result columns, which are written exactly once when a
// terminal outcome is reached.
type SignalStore interface {
	// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, s *domain.Signal) error

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, signalID string) (*domain.Signal, error)

	// GetBySymbol retrieves all signals for a symbol, ordered by created_at ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Signal, error)

	// GetPending retrieves unresolved signals created at or before
	// maxCreatedAtMs, ordered by created_at ASC.
	GetPending(ctx context.Context, maxCreatedAtMs int64) ([]*domain.Signal, error)

	// UpdateResult writes the terminal evaluation for a signal. Returns
	// ErrNotFound if the signal does not exist and ErrAlreadyResolved if
	// it was resolved with a different outcome. Writing the identical
	// outcome again is a no-op (idempotent retries).
	UpdateResult(ctx context.Context, eval *domain.Evaluation) error

	// GetResult retrieves the evaluation for a resolved signal. Returns
	// ErrNotFound if the signal does not exist or is still pending.
	GetResult(ctx context.Context, signalID string) (*domain.Evaluation, error)
}

// BarArchiveStore persists the bar sequences used in evaluations so that
// any outcome can be replayed and audited later.
type BarArchiveStore interface {
	// InsertBulk archives bars for a signal. Duplicate (signal_id,
	// timestamp_ms) pairs within the batch fail with ErrDuplicateKey.
	InsertBulk(ctx context.Context, signalID string, bars []*domain.PriceBar) error

	// GetBySignalID retrieves archived bars, ordered by timestamp ASC.
	GetBySignalID(ctx context.Context, signalID string) ([]*domain.PriceBar, error)

	// GetByTimeRange retrieves archived bars within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, signalID string, start, end int64) ([]*domain.PriceBar, error)
}
