package generator

import (
	"errors"
	"math"
	"testing"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/cooldown"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/idhash"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/risk"
)

const eps = 1e-9

func newGen(tracker cooldown.Tracker) *Generator {
	return New(risk.NewCalculator(), tracker, domain.DefaultRiskProfile)
}

func TestGenerate_Long(t *testing.T) {
	gen := newGen(nil)

	sig, err := gen.Generate(Input{
		Symbol:     "BTCUSDT",
		Direction:  "LONG",
		EntryPrice: 100,
		ATR:        2,
		NowMs:      1700000000000,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if sig.Direction != domain.DirectionLong {
		t.Errorf("Direction: got %s", sig.Direction)
	}
	if math.Abs(sig.EntryMin-99.8) > eps || math.Abs(sig.EntryMax-100.2) > eps {
		t.Errorf("entry zone: got [%f, %f], want [99.8, 100.2]", sig.EntryMin, sig.EntryMax)
	}
	if math.Abs(sig.StopLoss-98.2) > eps {
		t.Errorf("StopLoss: got %f, want 98.2", sig.StopLoss)
	}
	if sig.TakeProfits() != [3]float64{103, 105, 107} {
		t.Errorf("targets: got %v", sig.TakeProfits())
	}

	want := idhash.ComputeSignalID("BTCUSDT", "LONG", 1700000000000)
	if sig.SignalID != want {
		t.Errorf("SignalID: got %s, want %s", sig.SignalID, want)
	}
	if err := sig.Validate(); err != nil {
		t.Errorf("generated signal failed validation: %v", err)
	}
}

func TestGenerate_AliasNormalized(t *testing.T) {
	gen := newGen(nil)

	sig, err := gen.Generate(Input{
		Symbol:     "BTCUSDT",
		Direction:  "sell",
		EntryPrice: 100,
		ATR:        2,
		NowMs:      1700000000000,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if sig.Direction != domain.DirectionShort {
		t.Errorf("Direction: got %s, want SHORT", sig.Direction)
	}
	// The id hashes the canonical direction, not the alias.
	want := idhash.ComputeSignalID("BTCUSDT", "SHORT", 1700000000000)
	if sig.SignalID != want {
		t.Errorf("SignalID: got %s, want %s", sig.SignalID, want)
	}
}

func TestGenerate_CooldownGate(t *testing.T) {
	tracker := cooldown.NewMemoryTracker(60_000)
	gen := newGen(tracker)

	in := Input{Symbol: "BTCUSDT", Direction: "LONG", EntryPrice: 100, ATR: 2, NowMs: 1700000000000}
	if _, err := gen.Generate(in); err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}

	in.NowMs += 30_000
	if _, err := gen.Generate(in); !errors.Is(err, ErrCooldownActive) {
		t.Errorf("inside cooldown: expected ErrCooldownActive, got %v", err)
	}

	in.NowMs += 30_000
	if _, err := gen.Generate(in); err != nil {
		t.Errorf("after cooldown: Generate failed: %v", err)
	}
}

func TestGenerate_FailedValidationDoesNotRecord(t *testing.T) {
	tracker := cooldown.NewMemoryTracker(60_000)
	gen := newGen(tracker)

	bad := Input{Symbol: "BTCUSDT", Direction: "LONG", EntryPrice: 100, ATR: 0, NowMs: 1700000000000}
	if _, err := gen.Generate(bad); !errors.Is(err, risk.ErrInvalidVolatility) {
		t.Fatalf("expected ErrInvalidVolatility, got %v", err)
	}

	// The failed attempt must not consume the cooldown.
	good := bad
	good.ATR = 2
	if _, err := gen.Generate(good); err != nil {
		t.Errorf("Generate after failed attempt: %v", err)
	}
}

func TestGenerate_UnknownDirection(t *testing.T) {
	gen := newGen(nil)

	_, err := gen.Generate(Input{Symbol: "BTCUSDT", Direction: "SIDEWAYS", EntryPrice: 100, ATR: 2, NowMs: 1000})
	if !errors.Is(err, domain.ErrUnknownDirection) {
		t.Errorf("expected ErrUnknownDirection, got %v", err)
	}
}
