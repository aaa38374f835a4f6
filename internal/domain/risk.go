package domain

import "errors"

// Risk profile validation errors.
var (
	ErrInvalidStopMultiplier  = errors.New("stop_loss_atr_multiplier must be positive")
	ErrInvalidPriceFraction   = errors.New("stop_loss_max_price_fraction must be positive")
	ErrInvalidTakeMultipliers = errors.New("take_profit_atr_multipliers must be strictly increasing and positive")
	ErrInvalidZoneFraction    = errors.New("entry_zone_fraction must be non-negative")
)

// RiskProfile configures how stop-loss and take-profit distances are
// derived from price and volatility.
type RiskProfile struct {
	// StopLossATRMultiplier scales ATR into the volatility-based stop
	// distance candidate.
	StopLossATRMultiplier float64

	// StopLossMaxPriceFraction is a hard ceiling on risk distance as a
	// fraction of entry price (e.g. 0.018 = 1.8%). ATR stops can become
	// arbitrarily wide during volatility spikes; this caps them.
	StopLossMaxPriceFraction float64

	// TakeProfitATRMultipliers scale ATR into the three target
	// distances, nearest to farthest. Must be strictly increasing.
	TakeProfitATRMultipliers [3]float64

	// EntryZoneFraction is the half-width of the entry zone as a
	// fraction of entry price. Zero produces a single-price zone.
	EntryZoneFraction float64
}

// DefaultRiskProfile matches the production alert configuration.
var DefaultRiskProfile = RiskProfile{
	StopLossATRMultiplier:    1.5,
	StopLossMaxPriceFraction: 0.018,
	TakeProfitATRMultipliers: [3]float64{1.5, 2.5, 3.5},
	EntryZoneFraction:        0.002,
}

// Validate checks profile parameters.
func (p RiskProfile) Validate() error {
	if p.StopLossATRMultiplier <= 0 {
		return ErrInvalidStopMultiplier
	}
	if p.StopLossMaxPriceFraction <= 0 {
		return ErrInvalidPriceFraction
	}
	prev := 0.0
	for _, m := range p.TakeProfitATRMultipliers {
		if m <= prev {
			return ErrInvalidTakeMultipliers
		}
		prev = m
	}
	if p.EntryZoneFraction < 0 {
		return ErrInvalidZoneFraction
	}
	return nil
}

// RiskLevels is the computed projection of a risk profile onto a concrete
// entry price and volatility. Pure value, no independent lifecycle.
type RiskLevels struct {
	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64
	TakeProfit3 float64

	RiskAmount         float64    // absolute distance entry -> stop
	RewardAmounts      [3]float64 // absolute distance entry -> each target
	RewardToRiskRatios [3]float64 // reward / risk per target
}

// TakeProfits returns the three targets ordered nearest to farthest.
func (r *RiskLevels) TakeProfits() [3]float64 {
	return [3]float64{r.TakeProfit1, r.TakeProfit2, r.TakeProfit3}
}
