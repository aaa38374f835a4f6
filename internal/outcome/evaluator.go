// Package outcome classifies trade signals against ordered price bar
// sequences. It is the single canonical implementation of the signal
// lifecycle state machine; callers needing different intrabar tie-break
// semantics pass an ExitPolicy instead of forking the logic.
package outcome

import (
	"errors"
	"fmt"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
)

// ExitPolicy controls intrabar tie-breaking when one bar's range touches
// both a take-profit and the stop-loss.
type ExitPolicy string

const (
	// PolicyTakeProfitFirst credits intrabar favorable movement before
	// judging unfavorable movement: take-profit touches are recorded
	// before the stop-loss is checked on the same bar. Default.
	PolicyTakeProfitFirst ExitPolicy = "TP_FIRST"

	// PolicyStopLossFirst checks the stop-loss before take-profits on
	// each bar; ties go against the trader.
	PolicyStopLossFirst ExitPolicy = "SL_FIRST"
)

// Evaluator errors.
var (
	ErrUnknownExitPolicy = errors.New("unknown exit policy")

	// ErrUnorderedBarSequence is returned when bar timestamps are not
	// strictly increasing. The caller's bar source has a bug; the
	// evaluator never re-sorts.
	ErrUnorderedBarSequence = errors.New("bars not strictly increasing in timestamp")
)

// Scan states. AWAITING_ENTRY is initial; the IN_TRADE states carry the
// cumulative take-profit touch count. Terminal states are the four
// domain.Outcome variants.
type state int

const (
	stateAwaitingEntry state = iota
	stateInTrade0TP
	stateInTrade1TP
	stateInTrade2TP
)

// Evaluator runs the signal lifecycle state machine. Stateless across
// calls; safe for concurrent use from any number of goroutines.
type Evaluator struct {
	policy ExitPolicy
}

// NewEvaluator creates an evaluator with the default TP-before-SL policy.
func NewEvaluator() *Evaluator {
	return &Evaluator{policy: PolicyTakeProfitFirst}
}

// NewEvaluatorWithPolicy creates an evaluator with an explicit tie-break
// policy.
func NewEvaluatorWithPolicy(policy ExitPolicy) (*Evaluator, error) {
	switch policy {
	case PolicyTakeProfitFirst, PolicyStopLossFirst:
		return &Evaluator{policy: policy}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExitPolicy, policy)
	}
}

// Evaluate scans bars once, in order, and returns the terminal
// classification for the signal. Bars at or before the signal's creation
// time are skipped. Zero usable bars resolve to FALSE: entry cannot be
// verified. Pure function of (signal, bars); evaluating the same pair
// twice yields the same Evaluation.
func (e *Evaluator) Evaluate(sig *domain.Signal, bars []*domain.PriceBar) (*domain.Evaluation, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if err := checkOrdering(bars); err != nil {
		return nil, err
	}

	eval := &domain.Evaluation{
		SignalID: sig.SignalID,
		Outcome:  domain.OutcomeFalse,
	}

	st := stateAwaitingEntry
	tpsHit := 0

	for _, bar := range bars {
		if bar.TimestampMs <= sig.CreatedAtMs {
			continue
		}

		eval.BarsScanned++
		eval.ResolvedAtMs = bar.TimestampMs

		if st == stateAwaitingEntry {
			if !entryTouched(sig, bar) {
				continue
			}
			st = stateInTrade0TP
			eval.EntryTriggered = true
			eval.EntryTimeMs = bar.TimestampMs
			// The triggering bar participates in target checks below.
		}

		if e.policy == PolicyStopLossFirst && stopTouched(sig, bar) {
			return terminate(eval, tpsHit, true), nil
		}

		// Record target touches nearest-first. Touches are cumulative:
		// a touched level never un-touches.
		tpsHit = countTouches(sig, bar, tpsHit)
		if tpsHit == 3 {
			// Position is fully closed at TP3; the stop is not
			// consulted on this bar.
			return terminate(eval, tpsHit, false), nil
		}

		if e.policy == PolicyTakeProfitFirst && stopTouched(sig, bar) {
			return terminate(eval, tpsHit, true), nil
		}

		st = stateForTouches(tpsHit)
	}

	// Window exhausted without a stop or TP3. PARTIAL if anything was
	// banked, otherwise the signal never proved itself: FALSE.
	eval.TakeProfitsHit = tpsHit
	if st != stateAwaitingEntry && tpsHit > 0 {
		eval.Outcome = domain.OutcomePartial
	}
	return eval, nil
}

// terminate fills the terminal fields once the scan stops on a bar.
func terminate(eval *domain.Evaluation, tpsHit int, stopHit bool) *domain.Evaluation {
	eval.TakeProfitsHit = tpsHit
	eval.StopLossHit = stopHit

	switch {
	case tpsHit == 3:
		eval.Outcome = domain.OutcomeWinner
	case tpsHit > 0:
		eval.Outcome = domain.OutcomePartial
	default:
		eval.Outcome = domain.OutcomeLoser
	}
	return eval
}

// entryTouched reports whether the bar's range reached the entry zone.
// LONG entries fill when price dips into or through the zone; SHORT
// entries when price rises into or through it.
func entryTouched(sig *domain.Signal, bar *domain.PriceBar) bool {
	if sig.Direction == domain.DirectionLong {
		return bar.Low <= sig.EntryMax
	}
	return bar.High >= sig.EntryMin
}

// stopTouched reports whether the bar's range reached the stop-loss.
func stopTouched(sig *domain.Signal, bar *domain.PriceBar) bool {
	if sig.Direction == domain.DirectionLong {
		return bar.Low <= sig.StopLoss
	}
	return bar.High >= sig.StopLoss
}

// countTouches returns the cumulative take-profit touch count after this
// bar, checking untouched levels nearest-first.
func countTouches(sig *domain.Signal, bar *domain.PriceBar, touched int) int {
	targets := sig.TakeProfits()
	for i := touched; i < len(targets); i++ {
		if !targetTouched(sig.Direction, targets[i], bar) {
			break
		}
		touched = i + 1
	}
	return touched
}

// targetTouched reports whether the bar's range reached a single target.
func targetTouched(dir domain.Direction, target float64, bar *domain.PriceBar) bool {
	if dir == domain.DirectionLong {
		return bar.High >= target
	}
	return bar.Low <= target
}

// stateForTouches maps a cumulative touch count back to an IN_TRADE state.
func stateForTouches(tpsHit int) state {
	switch tpsHit {
	case 1:
		return stateInTrade1TP
	case 2:
		return stateInTrade2TP
	default:
		return stateInTrade0TP
	}
}

// checkOrdering fails fast when timestamps are not strictly increasing.
func checkOrdering(bars []*domain.PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].TimestampMs <= bars[i-1].TimestampMs {
			return fmt.Errorf("%w: index %d (%d) after %d", ErrUnorderedBarSequence, i, bars[i].TimestampMs, bars[i-1].TimestampMs)
		}
	}
	return nil
}
