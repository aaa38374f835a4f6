// Package generator assembles validated signals at the system boundary.
// All historical field-name and direction variants are normalized here,
// once, so downstream code only ever sees the canonical Signal shape.
package generator

import (
	"errors"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/cooldown"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/idhash"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/risk"
)

// ErrCooldownActive is returned when the symbol's cooldown window has not
// elapsed since its last signal.
var ErrCooldownActive = errors.New("symbol cooldown active")

// Input holds the raw material for one signal: the entry price and ATR
// come from external market-data and indicator collaborators.
type Input struct {
	Symbol     string
	Direction  string // any accepted alias: LONG/UP/BUY, SHORT/DOWN/SELL
	EntryPrice float64
	ATR        float64
	NowMs      int64
}

// Generator builds signals from entry price and volatility, applying the
// risk profile and the per-symbol cooldown gate.
type Generator struct {
	calc    *risk.Calculator
	tracker cooldown.Tracker
	profile domain.RiskProfile
}

// New creates a Generator. tracker may be nil to disable the cooldown
// gate (backtests generate signals at will).
func New(calc *risk.Calculator, tracker cooldown.Tracker, profile domain.RiskProfile) *Generator {
	return &Generator{
		calc:    calc,
		tracker: tracker,
		profile: profile,
	}
}

// Generate assembles and validates one Signal. The entry zone is the
// profile's zone fraction around the entry price; stop and targets come
// from the risk calculator. The cooldown is only recorded after the
// signal passes construction validation.
func (g *Generator) Generate(in Input) (*domain.Signal, error) {
	if g.tracker != nil && !g.tracker.CanGenerate(in.Symbol, in.NowMs) {
		return nil, ErrCooldownActive
	}

	direction, err := domain.ParseDirection(in.Direction)
	if err != nil {
		return nil, err
	}

	levels, err := g.calc.Compute(in.EntryPrice, in.ATR, direction, g.profile)
	if err != nil {
		return nil, err
	}

	entryMin := in.EntryPrice * (1 - g.profile.EntryZoneFraction)
	entryMax := in.EntryPrice * (1 + g.profile.EntryZoneFraction)

	signalID := idhash.ComputeSignalID(in.Symbol, string(direction), in.NowMs)

	sig, err := domain.NewSignal(
		signalID, in.Symbol, direction,
		entryMin, entryMax,
		levels.StopLoss,
		levels.TakeProfit1, levels.TakeProfit2, levels.TakeProfit3,
		in.NowMs,
	)
	if err != nil {
		return nil, err
	}

	if g.tracker != nil {
		g.tracker.Record(in.Symbol, in.NowMs)
	}

	return sig, nil
}
