package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
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
	store := NewSignalStore()
	ctx := context.Background()

	sig := testSignal("sig1", "BTCUSDT", 1000)
	if err := store.Insert(ctx, sig); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Symbol != "BTCUSDT" {
		t.Errorf("Symbol mismatch: got %s, want BTCUSDT", got.Symbol)
	}
	if got.StopLoss != 98.2 {
		t.Errorf("StopLoss mismatch: got %f, want 98.2", got.StopLoss)
	}
}

func TestSignalStore_DuplicateKey(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sig := testSignal("sig1", "BTCUSDT", 1000)
	if err := store.Insert(ctx, sig); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, sig)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSignalStore_NotFound(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSignalStore_GetBySymbol(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	for _, sig := range []*domain.Signal{
		testSignal("sig2", "BTCUSDT", 2000),
		testSignal("sig1", "BTCUSDT", 1000),
		testSignal("sig3", "ETHUSDT", 1500),
	} {
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetBySymbol(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 signals, got %d", len(got))
	}
	if got[0].SignalID != "sig1" || got[1].SignalID != "sig2" {
		t.Errorf("Expected created_at order [sig1 sig2], got [%s %s]", got[0].SignalID, got[1].SignalID)
	}
}

func TestSignalStore_GetPending(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	for _, sig := range []*domain.Signal{
		testSignal("sig1", "BTCUSDT", 1000),
		testSignal("sig2", "BTCUSDT", 2000),
		testSignal("sig3", "ETHUSDT", 5000),
	} {
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	// Resolve sig1, it should drop out of the pending set.
	eval := &domain.Evaluation{
		SignalID:     "sig1",
		Outcome:      domain.OutcomeWinner,
		ResolvedAtMs: 3000,
	}
	if err := store.UpdateResult(ctx, eval); err != nil {
		t.Fatalf("UpdateResult failed: %v", err)
	}

	pending, err := store.GetPending(ctx, 3000)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}

	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending signal, got %d", len(pending))
	}
	if pending[0].SignalID != "sig2" {
		t.Errorf("Expected sig2 pending, got %s", pending[0].SignalID)
	}
}

func TestSignalStore_UpdateResult_WriteOnce(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSignal("sig1", "BTCUSDT", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	eval := &domain.Evaluation{
		SignalID:       "sig1",
		Outcome:        domain.OutcomePartial,
		EntryTriggered: true,
		TakeProfitsHit: 2,
		StopLossHit:    true,
		ResolvedAtMs:   5000,
		BarsScanned:    42,
	}
	if err := store.UpdateResult(ctx, eval); err != nil {
		t.Fatalf("UpdateResult failed: %v", err)
	}

	// Same outcome again is an idempotent no-op.
	if err := store.UpdateResult(ctx, eval); err != nil {
		t.Fatalf("Idempotent UpdateResult failed: %v", err)
	}

	// A conflicting outcome must be rejected.
	conflict := &domain.Evaluation{SignalID: "sig1", Outcome: domain.OutcomeLoser, ResolvedAtMs: 6000}
	err := store.UpdateResult(ctx, conflict)
	if !errors.Is(err, storage.ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved, got %v", err)
	}

	got, err := store.GetResult(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if got.Outcome != domain.OutcomePartial {
		t.Errorf("Outcome mismatch: got %s, want PARTIAL", got.Outcome)
	}
	if got.TakeProfitsHit != 2 {
		t.Errorf("TakeProfitsHit mismatch: got %d, want 2", got.TakeProfitsHit)
	}
}

func TestSignalStore_UpdateResult_MissingSignal(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	eval := &domain.Evaluation{SignalID: "ghost", Outcome: domain.OutcomeFalse}
	err := store.UpdateResult(ctx, eval)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSignalStore_GetResult_Pending(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSignal("sig1", "BTCUSDT", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	_, err := store.GetResult(ctx, "sig1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for pending signal, got %v", err)
	}
}

func TestSignalStore_CopySemantics(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sig := testSignal("sig1", "BTCUSDT", 1000)
	if err := store.Insert(ctx, sig); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's copy must not affect the stored record.
	sig.StopLoss = 0

	got, err := store.GetByID(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.StopLoss != 98.2 {
		t.Errorf("Stored signal mutated through caller pointer: got %f", got.StopLoss)
	}
}
