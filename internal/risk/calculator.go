// Package risk derives stop-loss and take-profit levels from an entry
// price, a volatility measure (ATR) and a direction.
package risk

import (
	"errors"
	"math"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
)

// Calculator errors.
var (
	// ErrInvalidVolatility is returned when ATR <= 0. A zero-risk signal
	// is a caller bug; never proceed with one.
	ErrInvalidVolatility = errors.New("volatility (ATR) must be positive")

	// ErrInvalidEntryPrice is returned when entry price <= 0.
	ErrInvalidEntryPrice = errors.New("entry price must be positive")

	// ErrDegenerateRiskLevels is returned when the computed risk
	// distance collapses to zero (misconfigured profile). Never
	// silently fall back to a default ratio.
	ErrDegenerateRiskLevels = errors.New("degenerate risk levels: zero risk distance")
)

// Calculator computes RiskLevels from entry price, ATR and direction.
// Pure function of its inputs; safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a risk level calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute derives the full RiskLevels projection.
//
// Take-profit levels: entry + sign * atr * multiplier_i.
// Stop-loss: the more conservative (smaller) of two candidate distances,
// atr * stop_multiplier and entry * max_price_fraction.
func (c *Calculator) Compute(entryPrice, atr float64, direction domain.Direction, profile domain.RiskProfile) (*domain.RiskLevels, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if entryPrice <= 0 {
		return nil, ErrInvalidEntryPrice
	}
	if atr <= 0 {
		return nil, ErrInvalidVolatility
	}

	atrDistance := atr * profile.StopLossATRMultiplier
	capDistance := entryPrice * profile.StopLossMaxPriceFraction
	riskDistance := math.Min(atrDistance, capDistance)
	if riskDistance <= 0 {
		return nil, ErrDegenerateRiskLevels
	}

	sign := direction.Sign()
	levels := &domain.RiskLevels{
		StopLoss:    entryPrice - sign*riskDistance,
		TakeProfit1: entryPrice + sign*atr*profile.TakeProfitATRMultipliers[0],
		TakeProfit2: entryPrice + sign*atr*profile.TakeProfitATRMultipliers[1],
		TakeProfit3: entryPrice + sign*atr*profile.TakeProfitATRMultipliers[2],
		RiskAmount:  riskDistance,
	}

	for i, m := range profile.TakeProfitATRMultipliers {
		levels.RewardAmounts[i] = atr * m
		levels.RewardToRiskRatios[i] = levels.RewardAmounts[i] / riskDistance
	}

	return levels, nil
}
