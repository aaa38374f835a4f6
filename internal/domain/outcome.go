package domain

// Outcome is the terminal classification of a signal.
type Outcome string

// Terminal outcome variants. Exactly one is produced per evaluation.
const (
	// OutcomeWinner: all three take-profits touched before stop-loss.
	OutcomeWinner Outcome = "WINNER"
	// OutcomePartial: one or two take-profits touched, then stop-loss
	// touched or the scan window ended.
	OutcomePartial Outcome = "PARTIAL"
	// OutcomeLoser: stop-loss touched after entry with no take-profit.
	OutcomeLoser Outcome = "LOSER"
	// OutcomeFalse: entry never triggered, or triggered with neither a
	// take-profit nor the stop-loss touched before the window ended.
	OutcomeFalse Outcome = "FALSE"
)

// Valid reports whether o is one of the four terminal variants.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWinner, OutcomePartial, OutcomeLoser, OutcomeFalse:
		return true
	}
	return false
}

// Evaluation is the resolved result of scanning a bar sequence for a
// signal. Produced once per signal; re-evaluating the same (signal, bars)
// pair yields an identical Evaluation.
type Evaluation struct {
	SignalID string
	Outcome  Outcome

	EntryTriggered bool
	EntryTimeMs    int64 // timestamp of the entry-triggering bar, 0 if never triggered

	TakeProfitsHit int   // 0..3, cumulative touches at termination
	StopLossHit    bool  // true if the stop terminated the scan
	ResolvedAtMs   int64 // timestamp of the terminating bar, or last scanned bar

	BarsScanned int
}
