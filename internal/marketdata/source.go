// Package marketdata provides bar-source collaborators: REST and
// WebSocket clients for exchange kline data. The evaluator assumes bars
// returned here are complete and chronologically ordered; retries and
// fallbacks live in this package, never in the evaluator.
package marketdata

import (
	"context"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
)

// BarSource supplies ordered price bars for a symbol starting strictly
// after startMs.
type BarSource interface {
	// FetchBars returns up to limit bars with open time > startMs, in
	// strictly increasing timestamp order.
	FetchBars(ctx context.Context, symbol string, startMs int64, limit int) ([]*domain.PriceBar, error)
}
