package backtest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
)

// Report summarizes outcomes for a batch of evaluated signals.
type Report struct {
	TotalSignals int

	// Counts per terminal outcome.
	Winners  int
	Partials int
	Losers   int
	False    int

	// Rates over triggered signals (entry was touched). FALSE signals
	// never entered, so they are excluded from win/loss rates.
	Triggered   int
	WinRate     float64
	PartialRate float64
	LossRate    float64

	// Take profit depth over triggered signals.
	AvgTakeProfitsHit float64

	// Per symbol outcome counts.
	BySymbol map[string]*SymbolStats
}

// SymbolStats holds per-symbol outcome counts.
type SymbolStats struct {
	Total    int
	Winners  int
	Partials int
	Losers   int
	False    int
}

// Compute builds a Report from signals and their evaluations. Signals
// without a matching evaluation are skipped.
func Compute(signals []*domain.Signal, evals map[string]*domain.Evaluation) *Report {
	report := &Report{BySymbol: make(map[string]*SymbolStats)}

	var tpSum int

	for _, sig := range signals {
		eval, ok := evals[sig.SignalID]
		if !ok {
			continue
		}

		report.TotalSignals++

		stats := report.BySymbol[sig.Symbol]
		if stats == nil {
			stats = &SymbolStats{}
			report.BySymbol[sig.Symbol] = stats
		}
		stats.Total++

		switch eval.Outcome {
		case domain.OutcomeWinner:
			report.Winners++
			stats.Winners++
		case domain.OutcomePartial:
			report.Partials++
			stats.Partials++
		case domain.OutcomeLoser:
			report.Losers++
			stats.Losers++
		case domain.OutcomeFalse:
			report.False++
			stats.False++
		}

		if eval.EntryTriggered {
			report.Triggered++
			tpSum += eval.TakeProfitsHit
		}
	}

	if report.Triggered > 0 {
		report.WinRate = float64(report.Winners) / float64(report.Triggered)
		report.PartialRate = float64(report.Partials) / float64(report.Triggered)
		report.LossRate = float64(report.Losers) / float64(report.Triggered)
		report.AvgTakeProfitsHit = float64(tpSum) / float64(report.Triggered)
	}

	return report
}

// String renders the report as a fixed-width text table.
func (r *Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Signals evaluated: %d (triggered: %d)\n", r.TotalSignals, r.Triggered)
	fmt.Fprintf(&b, "  WINNER:  %4d\n", r.Winners)
	fmt.Fprintf(&b, "  PARTIAL: %4d\n", r.Partials)
	fmt.Fprintf(&b, "  LOSER:   %4d\n", r.Losers)
	fmt.Fprintf(&b, "  FALSE:   %4d\n", r.False)

	if r.Triggered > 0 {
		fmt.Fprintf(&b, "Win rate:     %6.2f%%\n", r.WinRate*100)
		fmt.Fprintf(&b, "Partial rate: %6.2f%%\n", r.PartialRate*100)
		fmt.Fprintf(&b, "Loss rate:    %6.2f%%\n", r.LossRate*100)
		fmt.Fprintf(&b, "Avg TPs hit:  %6.2f\n", r.AvgTakeProfitsHit)
	}

	if len(r.BySymbol) > 0 {
		symbols := make([]string, 0, len(r.BySymbol))
		for s := range r.BySymbol {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)

		b.WriteString("Per symbol:\n")
		for _, s := range symbols {
			st := r.BySymbol[s]
			fmt.Fprintf(&b, "  %-12s total=%-4d W=%-4d P=%-4d L=%-4d F=%-4d\n",
				s, st.Total, st.Winners, st.Partials, st.Losers, st.False)
		}
	}

	return b.String()
}
