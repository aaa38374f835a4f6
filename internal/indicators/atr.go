// Package indicators provides the technical indicator computations the
// signal pipeline consumes as pure functions over bar series.
package indicators

import (
	"errors"
	"math"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
)

// ErrNotEnoughBars is returned when the series is shorter than the
// requested smoothing period allows.
var ErrNotEnoughBars = errors.New("not enough bars for indicator period")

// ATR computes the Average True Range with Wilder smoothing. The result
// is aligned to the input: atr[i] is the ATR as of bars[i], with the
// first period-1 entries zero (warm-up).
func ATR(bars []*domain.PriceBar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return nil, ErrNotEnoughBars
	}

	length := len(bars)
	trs := make([]float64, length)
	trs[0] = bars[0].High - bars[0].Low

	for i := 1; i < length; i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		trs[i] = math.Max(hl, math.Max(hc, lc))
	}

	atr := make([]float64, length)

	// Seed with a simple average of the first period true ranges.
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trs[i]
	}
	atr[period-1] = sum / float64(period)

	// Wilder smoothing for the rest.
	for i := period; i < length; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + trs[i]) / float64(period)
	}

	return atr, nil
}

// LatestATR returns the ATR of the final bar in the series.
func LatestATR(bars []*domain.PriceBar, period int) (float64, error) {
	atr, err := ATR(bars, period)
	if err != nil {
		return 0, err
	}
	return atr[len(atr)-1], nil
}
