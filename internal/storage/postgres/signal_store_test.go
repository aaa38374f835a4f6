package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage/postgres"
)

func testSignal(id, symbol string, createdAtMs int64) *domain.Signal {
	return &domain.Signal{
		SignalID:    id,
		Symbol:      symbol,
		Direction:   domain.DirectionLong,
		EntryMin:    99.8,
		EntryMax:    100.2,
		StopLoss:    98.2,
		TakeProfit1: 103,
		TakeProfit2: 105,
		TakeProfit3: 107,
		CreatedAtMs: createdAtMs,
	}
}

func TestSignalStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSignalStore(pool)
	ctx := context.Background()

	sig := testSignal("sig1", "BTCUSDT", 1000)
	require.NoError(t, store.Insert(ctx, sig))

	got, err := store.GetByID(ctx, "sig1")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.Equal(t, domain.DirectionLong, got.Direction)
	assert.Equal(t, 98.2, got.StopLoss)
	assert.Equal(t, 107.0, got.TakeProfit3)
	assert.Equal(t, int64(1000), got.CreatedAtMs)
}

func TestSignalStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSignalStore(pool)
	ctx := context.Background()

	sig := testSignal("sig1", "BTCUSDT", 1000)
	require.NoError(t, store.Insert(ctx, sig))

	err := store.Insert(ctx, sig)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSignalStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSignalStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStore_GetBySymbol(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSignalStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSignal("sig2", "BTCUSDT", 2000)))
	require.NoError(t, store.Insert(ctx, testSignal("sig1", "BTCUSDT", 1000)))
	require.NoError(t, store.Insert(ctx, testSignal("sig3", "ETHUSDT", 1500)))

	got, err := store.GetBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "sig1", got[0].SignalID)
	assert.Equal(t, "sig2", got[1].SignalID)
}

func TestSignalStore_GetPending(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSignalStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSignal("sig1", "BTCUSDT", 1000)))
	require.NoError(t, store.Insert(ctx, testSignal("sig2", "BTCUSDT", 2000)))
	require.NoError(t, store.Insert(ctx, testSignal("sig3", "ETHUSDT", 9000)))

	eval := &domain.Evaluation{
		SignalID:       "sig1",
		Outcome:        domain.OutcomeWinner,
		EntryTriggered: true,
		TakeProfitsHit: 3,
		ResolvedAtMs:   5000,
		BarsScanned:    10,
	}
	require.NoError(t, store.UpdateResult(ctx, eval))

	pending, err := store.GetPending(ctx, 5000)
	require.NoError(t, err)

	require.Len(t, pending, 1)
	assert.Equal(t, "sig2", pending[0].SignalID)
}

func TestSignalStore_UpdateResult_WriteOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSignalStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSignal("sig1", "BTCUSDT", 1000)))

	eval := &domain.Evaluation{
		SignalID:       "sig1",
		Outcome:        domain.OutcomePartial,
		EntryTriggered: true,
		EntryTimeMs:    1500,
		TakeProfitsHit: 2,
		StopLossHit:    true,
		ResolvedAtMs:   5000,
		BarsScanned:    42,
	}
	require.NoError(t, store.UpdateResult(ctx, eval))

	// Retrying with the same outcome is idempotent.
	require.NoError(t, store.UpdateResult(ctx, eval))

	// Conflicting outcome is rejected.
	conflict := &domain.Evaluation{SignalID: "sig1", Outcome: domain.OutcomeLoser, ResolvedAtMs: 6000}
	err := store.UpdateResult(ctx, conflict)
	assert.ErrorIs(t, err, storage.ErrAlreadyResolved)

	got, err := store.GetResult(ctx, "sig1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePartial, got.Outcome)
	assert.True(t, got.EntryTriggered)
	assert.Equal(t, int64(1500), got.EntryTimeMs)
	assert.Equal(t, 2, got.TakeProfitsHit)
	assert.True(t, got.StopLossHit)
	assert.Equal(t, int64(5000), got.ResolvedAtMs)
	assert.Equal(t, 42, got.BarsScanned)
}

func TestSignalStore_UpdateResult_MissingSignal(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSignalStore(pool)
	ctx := context.Background()

	eval := &domain.Evaluation{SignalID: "ghost", Outcome: domain.OutcomeFalse}
	err := store.UpdateResult(ctx, eval)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStore_GetResult_Pending(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSignalStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSignal("sig1", "BTCUSDT", 1000)))

	_, err := store.GetResult(ctx, "sig1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStore_ShortDirectionRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewSignalStore(pool)
	ctx := context.Background()

	sig := &domain.Signal{
		SignalID:    "sigshort",
		Symbol:      "ETHUSDT",
		Direction:   domain.DirectionShort,
		EntryMin:    199.6,
		EntryMax:    200.4,
		StopLoss:    203.6,
		TakeProfit1: 197,
		TakeProfit2: 195,
		TakeProfit3: 193,
		CreatedAtMs: 1000,
	}
	require.NoError(t, store.Insert(ctx, sig))

	got, err := store.GetByID(ctx, "sigshort")
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionShort, got.Direction)
	assert.Equal(t, 203.6, got.StopLoss)
}
