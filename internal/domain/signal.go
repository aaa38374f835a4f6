package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Direction of a trade signal.
type Direction string

// Canonical direction variants. Historical generators emit UP/DOWN and
// BUY/SELL aliases; ParseDirection maps them here at the boundary.
const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Signal construction errors.
var (
	ErrEmptySymbol      = errors.New("symbol is empty")
	ErrUnknownDirection = errors.New("unknown direction")
	ErrInvalidEntryZone = errors.New("entry zone bounds out of order or non-positive")
	ErrInvalidLevels    = errors.New("stop/target levels violate direction ordering")
	ErrInvalidCreatedAt = errors.New("created_at timestamp must be positive")
)

// ParseDirection normalizes a direction token to one of the two canonical
// variants. Accepted aliases: LONG/UP/BUY and SHORT/DOWN/SELL.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "UP", "BUY":
		return DirectionLong, nil
	case "SHORT", "DOWN", "SELL":
		return DirectionShort, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// Sign returns +1.0 for LONG and -1.0 for SHORT.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

// Signal is a fully specified trade signal. Immutable once constructed;
// level ordering is validated at construction time so the evaluator never
// sees a malformed signal.
type Signal struct {
	SignalID  string    // deterministic hash
	Symbol    string    // e.g. "BTCUSDT"
	Direction Direction // LONG | SHORT

	// Entry zone bounds, EntryMin <= EntryMax. A single-price signal
	// sets both bounds equal.
	EntryMin float64
	EntryMax float64

	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64
	TakeProfit3 float64

	CreatedAtMs int64 // bar scanning starts strictly after this time
}

// NewSignal builds a validated Signal. Returns a construction error if the
// level ordering invariant is violated:
//   - LONG:  stop < entry_min <= entry_max < tp1 < tp2 < tp3
//   - SHORT: stop > entry_max >= entry_min > tp1 > tp2 > tp3
func NewSignal(signalID, symbol string, direction Direction, entryMin, entryMax, stopLoss, tp1, tp2, tp3 float64, createdAtMs int64) (*Signal, error) {
	s := &Signal{
		SignalID:    signalID,
		Symbol:      symbol,
		Direction:   direction,
		EntryMin:    entryMin,
		EntryMax:    entryMax,
		StopLoss:    stopLoss,
		TakeProfit1: tp1,
		TakeProfit2: tp2,
		TakeProfit3: tp3,
		CreatedAtMs: createdAtMs,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the construction invariants.
func (s *Signal) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return ErrEmptySymbol
	}
	if s.Direction != DirectionLong && s.Direction != DirectionShort {
		return fmt.Errorf("%w: %q", ErrUnknownDirection, s.Direction)
	}
	if s.CreatedAtMs <= 0 {
		return ErrInvalidCreatedAt
	}
	if s.EntryMin <= 0 || s.EntryMax <= 0 || s.EntryMin > s.EntryMax {
		return ErrInvalidEntryZone
	}

	switch s.Direction {
	case DirectionLong:
		if !(s.StopLoss < s.EntryMin &&
			s.EntryMax < s.TakeProfit1 &&
			s.TakeProfit1 < s.TakeProfit2 &&
			s.TakeProfit2 < s.TakeProfit3) {
			return ErrInvalidLevels
		}
	case DirectionShort:
		if !(s.StopLoss > s.EntryMax &&
			s.EntryMin > s.TakeProfit1 &&
			s.TakeProfit1 > s.TakeProfit2 &&
			s.TakeProfit2 > s.TakeProfit3) {
			return ErrInvalidLevels
		}
	}

	return nil
}

// TakeProfits returns the three targets ordered nearest to farthest.
func (s *Signal) TakeProfits() [3]float64 {
	return [3]float64{s.TakeProfit1, s.TakeProfit2, s.TakeProfit3}
}
