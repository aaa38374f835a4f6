package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
)

func testBars(timestamps ...int64) []*domain.PriceBar {
	bars := make([]*domain.PriceBar, len(timestamps))
	for i, ts := range timestamps {
		bars[i] = &domain.PriceBar{
			TimestampMs: ts,
			Open:        100,
			High:        101,
			Low:         99,
			Close:       100.5,
			Volume:      10,
		}
	}
	return bars
}

func TestBarArchiveStore_InsertAndGet(t *testing.T) {
	store := NewBarArchiveStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "sig1", testBars(3000, 1000, 2000)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySignalID(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignalID failed: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 bars, got %d", len(got))
	}
	for i, want := range []int64{1000, 2000, 3000} {
		if got[i].TimestampMs != want {
			t.Errorf("Bar %d timestamp: got %d, want %d", i, got[i].TimestampMs, want)
		}
	}
}

func TestBarArchiveStore_DuplicateInBatch(t *testing.T) {
	store := NewBarArchiveStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, "sig1", testBars(1000, 1000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Failed batch must not be partially applied.
	got, err := store.GetBySignalID(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignalID failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no bars after failed batch, got %d", len(got))
	}
}

func TestBarArchiveStore_DuplicateAcrossBatches(t *testing.T) {
	store := NewBarArchiveStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "sig1", testBars(1000, 2000)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	err := store.InsertBulk(ctx, "sig1", testBars(2000, 3000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same timestamps under a different signal are fine.
	if err := store.InsertBulk(ctx, "sig2", testBars(1000, 2000)); err != nil {
		t.Errorf("Insert for another signal failed: %v", err)
	}
}

func TestBarArchiveStore_GetByTimeRange(t *testing.T) {
	store := NewBarArchiveStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "sig1", testBars(1000, 2000, 3000, 4000)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, "sig1", 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 bars in range, got %d", len(got))
	}
	if got[0].TimestampMs != 2000 || got[1].TimestampMs != 3000 {
		t.Errorf("Range bounds should be inclusive: got [%d %d]", got[0].TimestampMs, got[1].TimestampMs)
	}
}

func TestBarArchiveStore_EmptyBatch(t *testing.T) {
	store := NewBarArchiveStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "sig1", nil); err != nil {
		t.Errorf("Empty batch should be a no-op, got %v", err)
	}
}
