// Package backtest replays historical bars against stored signals and
// reports outcome statistics.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/marketdata"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/outcome"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
)

// Runner evaluates a batch of signals against historical bars.
type Runner struct {
	signalStore storage.SignalStore
	barSource   marketdata.BarSource
	evaluator   *outcome.Evaluator
	barLimit    int
	verbose     bool
}

// Options for creating a Runner.
type Options struct {
	SignalStore storage.SignalStore
	BarSource   marketdata.BarSource
	Evaluator   *outcome.Evaluator
	BarLimit    int
	Verbose     bool
}

// New creates a new backtest Runner.
func New(opts Options) *Runner {
	r := &Runner{
		signalStore: opts.SignalStore,
		barSource:   opts.BarSource,
		evaluator:   opts.Evaluator,
		barLimit:    opts.BarLimit,
		verbose:     opts.Verbose,
	}
	if r.evaluator == nil {
		r.evaluator = outcome.NewEvaluator()
	}
	if r.barLimit <= 0 {
		r.barLimit = 1000
	}
	return r
}

// RunSymbol evaluates every stored signal for a symbol against the bars
// that followed it and returns the aggregated report.
func (r *Runner) RunSymbol(ctx context.Context, symbol string) (*Report, error) {
	signals, err := r.signalStore.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load signals for %s: %w", symbol, err)
	}
	return r.run(ctx, signals)
}

// RunAll evaluates stored signals across all given symbols.
func (r *Runner) RunAll(ctx context.Context, symbols []string) (*Report, error) {
	var all []*domain.Signal
	for _, symbol := range symbols {
		signals, err := r.signalStore.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("load signals for %s: %w", symbol, err)
		}
		all = append(all, signals...)
	}
	return r.run(ctx, all)
}

func (r *Runner) run(ctx context.Context, signals []*domain.Signal) (*Report, error) {
	evals := make(map[string]*domain.Evaluation, len(signals))

	for _, sig := range signals {
		bars, err := r.barSource.FetchBars(ctx, sig.Symbol, sig.CreatedAtMs, r.barLimit)
		if err != nil {
			return nil, fmt.Errorf("fetch bars for %s: %w", sig.Symbol, err)
		}

		eval, err := r.evaluator.Evaluate(sig, bars)
		if err != nil {
			// A broken bar window fails one signal, not the batch.
			if errors.Is(err, outcome.ErrUnorderedBarSequence) {
				r.log("skip %s: %v", sig.SignalID, err)
				continue
			}
			return nil, fmt.Errorf("evaluate %s: %w", sig.SignalID, err)
		}

		evals[sig.SignalID] = eval
		r.log("%s -> %s (tps=%d, bars=%d)", sig.SignalID, eval.Outcome, eval.TakeProfitsHit, eval.BarsScanned)
	}

	return Compute(signals, evals), nil
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf("[backtest] "+format, args...)
	}
}
