package domain

// PriceBar is one OHLC price observation over a fixed time interval.
// Bars handed to the evaluator must be strictly increasing in timestamp;
// the evaluator does not sort.
type PriceBar struct {
	TimestampMs int64 // bar open time, Unix milliseconds
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// Supported kline intervals for bar fetching.
const (
	Interval1Min  = "1m"
	Interval5Min  = "5m"
	Interval15Min = "15m"
	Interval1Hour = "1h"
)
