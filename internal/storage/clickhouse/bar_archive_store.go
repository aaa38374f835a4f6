package clickhouse

import (
	"context"
	"fmt"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
)

// BarArchiveStore implements storage.BarArchiveStore using ClickHouse.
// Bars evaluated against a signal are archived here so any recorded
// outcome can be replayed later from the exact same window.
type BarArchiveStore struct {
	conn *Conn
}

// NewBarArchiveStore creates a new BarArchiveStore.
func NewBarArchiveStore(conn *Conn) *BarArchiveStore {
	return &BarArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarArchiveStore = (*BarArchiveStore)(nil)

// InsertBulk archives bars for a signal. Fails entire batch on any
// duplicate (signal_id, timestamp_ms).
func (s *BarArchiveStore) InsertBulk(ctx context.Context, signalID string, bars []*domain.PriceBar) error {
	if signalID == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		if b == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[b.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[b.TimestampMs] = struct{}{}
	}

	// ClickHouse MergeTree does not enforce uniqueness at insert time,
	// so duplicates are rejected with an explicit check before insert.
	for _, b := range bars {
		exists, err := s.exists(ctx, signalID, b.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bar_archive (
			signal_id, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			signalID, uint64(b.TimestampMs),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySignalID retrieves archived bars, ordered by timestamp ASC.
func (s *BarArchiveStore) GetBySignalID(ctx context.Context, signalID string) ([]*domain.PriceBar, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM bar_archive
		WHERE signal_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, signalID)
	if err != nil {
		return nil, fmt.Errorf("query by signal id: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetByTimeRange retrieves archived bars within [start, end] (inclusive).
func (s *BarArchiveStore) GetByTimeRange(ctx context.Context, signalID string, start, end int64) ([]*domain.PriceBar, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM bar_archive
		WHERE signal_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, signalID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// exists checks if a bar with the given key exists.
func (s *BarArchiveStore) exists(ctx context.Context, signalID string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM bar_archive
		WHERE signal_id = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, signalID, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanBars scans multiple rows.
func scanBars(rows chRows) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar

	for rows.Next() {
		var b domain.PriceBar
		var timestampMs uint64

		err := rows.Scan(
			&timestampMs, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		b.TimestampMs = int64(timestampMs)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
