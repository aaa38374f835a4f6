package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const signalColumns = `
	signal_id, symbol, direction,
	entry_min, entry_max, stop_loss,
	take_profit_1, take_profit_2, take_profit_3,
	created_at_ms
`

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.Signal) error {
	query := `
		INSERT INTO signals (
			signal_id, symbol, direction,
			entry_min, entry_max, stop_loss,
			take_profit_1, take_profit_2, take_profit_3,
			created_at_ms
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		sig.SignalID, sig.Symbol, string(sig.Direction),
		sig.EntryMin, sig.EntryMax, sig.StopLoss,
		sig.TakeProfit1, sig.TakeProfit2, sig.TakeProfit3,
		sig.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, signalID string) (*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE signal_id = $1
	`

	row := s.pool.QueryRow(ctx, query, signalID)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return sig, nil
}

// GetBySymbol retrieves all signals for a symbol, ordered by created_at ASC.
func (s *SignalStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE symbol = $1
		ORDER BY created_at_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get signals by symbol: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetPending retrieves unresolved signals created at or before
// maxCreatedAtMs, ordered by created_at ASC.
func (s *SignalStore) GetPending(ctx context.Context, maxCreatedAtMs int64) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE outcome IS NULL AND created_at_ms <= $1
		ORDER BY created_at_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, maxCreatedAtMs)
	if err != nil {
		return nil, fmt.Errorf("get pending signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// UpdateResult writes the terminal evaluation for a signal. The update
// only lands while outcome is NULL or already equal, making retries with
// the same outcome idempotent and conflicting writes fail.
func (s *SignalStore) UpdateResult(ctx context.Context, eval *domain.Evaluation) error {
	if eval == nil || eval.SignalID == "" || !eval.Outcome.Valid() {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE signals
		SET outcome = $2,
		    entry_triggered = $3,
		    entry_time_ms = $4,
		    take_profits_hit = $5,
		    stop_loss_hit = $6,
		    resolved_at_ms = $7,
		    bars_scanned = $8
		WHERE signal_id = $1 AND (outcome IS NULL OR outcome = $2)
	`

	tag, err := s.pool.Exec(ctx, query,
		eval.SignalID, string(eval.Outcome),
		eval.EntryTriggered, eval.EntryTimeMs,
		eval.TakeProfitsHit, eval.StopLossHit,
		eval.ResolvedAtMs, eval.BarsScanned,
	)
	if err != nil {
		return fmt.Errorf("update signal result: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the signal is missing or it already carries a
		// different outcome. One more read to tell the two apart.
		var existing *string
		row := s.pool.QueryRow(ctx, `SELECT outcome FROM signals WHERE signal_id = $1`, eval.SignalID)
		if err := row.Scan(&existing); err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("check signal outcome: %w", err)
		}
		return storage.ErrAlreadyResolved
	}

	return nil
}

// GetResult retrieves the evaluation for a resolved signal.
func (s *SignalStore) GetResult(ctx context.Context, signalID string) (*domain.Evaluation, error) {
	query := `
		SELECT signal_id, outcome, entry_triggered, entry_time_ms,
		       take_profits_hit, stop_loss_hit, resolved_at_ms, bars_scanned
		FROM signals
		WHERE signal_id = $1 AND outcome IS NOT NULL
	`

	row := s.pool.QueryRow(ctx, query, signalID)

	var (
		eval    domain.Evaluation
		outcome string
	)
	err := row.Scan(
		&eval.SignalID, &outcome, &eval.EntryTriggered, &eval.EntryTimeMs,
		&eval.TakeProfitsHit, &eval.StopLossHit, &eval.ResolvedAtMs, &eval.BarsScanned,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal result: %w", err)
	}

	eval.Outcome = domain.Outcome(outcome)
	return &eval, nil
}

// scanSignal scans a single row into a Signal.
func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var (
		sig       domain.Signal
		direction string
	)

	err := row.Scan(
		&sig.SignalID, &sig.Symbol, &direction,
		&sig.EntryMin, &sig.EntryMax, &sig.StopLoss,
		&sig.TakeProfit1, &sig.TakeProfit2, &sig.TakeProfit3,
		&sig.CreatedAtMs,
	)
	if err != nil {
		return nil, err
	}

	sig.Direction = domain.Direction(direction)
	return &sig, nil
}

// scanSignals scans multiple rows into a slice of Signal.
func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	var signals []*domain.Signal

	for rows.Next() {
		var (
			sig       domain.Signal
			direction string
		)

		err := rows.Scan(
			&sig.SignalID, &sig.Symbol, &direction,
			&sig.EntryMin, &sig.EntryMax, &sig.StopLoss,
			&sig.TakeProfit1, &sig.TakeProfit2, &sig.TakeProfit3,
			&sig.CreatedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}

		sig.Direction = domain.Direction(direction)
		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
