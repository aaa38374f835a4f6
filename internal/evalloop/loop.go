// Package evalloop drives the periodic resolution of pending signals.
// It coordinates: fetch pending → fetch bars → evaluate → persist outcome
package evalloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/marketdata"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/observability"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/outcome"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
)

// Default tuning values.
const (
	DefaultMinAge       = 15 * time.Minute
	DefaultResolveAfter = 48 * time.Hour
	DefaultBarLimit     = 1000
	DefaultWorkers      = 4
)

// Runner resolves pending signals against fresh market data.
type Runner struct {
	signalStore storage.SignalStore
	barArchive  storage.BarArchiveStore
	barSource   marketdata.BarSource
	evaluator   *outcome.Evaluator

	minAge       time.Duration
	resolveAfter time.Duration
	barLimit     int
	workers      int
	verbose      bool

	// nowMs is swappable for tests.
	nowMs func() int64
}

// Options for creating a Runner.
type Options struct {
	SignalStore storage.SignalStore
	BarArchive  storage.BarArchiveStore // optional, bars are archived when set
	BarSource   marketdata.BarSource
	Evaluator   *outcome.Evaluator

	// MinAge is how old a signal must be before it is evaluated at all.
	// Evaluating too early wastes fetches on windows with no closed bars.
	MinAge time.Duration

	// ResolveAfter is the age past which a signal with a provisional
	// verdict (no entry, nothing hit, or an open partial) is allowed to
	// settle. Before that age the window is still open, so the verdict
	// is deferred rather than persisted.
	ResolveAfter time.Duration

	BarLimit int
	Workers  int
	Verbose  bool
}

// New creates a new Runner.
func New(opts Options) *Runner {
	r := &Runner{
		signalStore:  opts.SignalStore,
		barArchive:   opts.BarArchive,
		barSource:    opts.BarSource,
		evaluator:    opts.Evaluator,
		minAge:       opts.MinAge,
		resolveAfter: opts.ResolveAfter,
		barLimit:     opts.BarLimit,
		workers:      opts.Workers,
		verbose:      opts.Verbose,
		nowMs: func() int64 {
			return time.Now().UnixMilli()
		},
	}

	if r.evaluator == nil {
		r.evaluator = outcome.NewEvaluator()
	}
	if r.minAge <= 0 {
		r.minAge = DefaultMinAge
	}
	if r.resolveAfter <= 0 {
		r.resolveAfter = DefaultResolveAfter
	}
	if r.barLimit <= 0 {
		r.barLimit = DefaultBarLimit
	}
	if r.workers <= 0 {
		r.workers = DefaultWorkers
	}

	return r
}

// RunResult contains results from one loop pass.
type RunResult struct {
	Scanned  int
	Resolved int
	Deferred int
	Errors   []string
}

// RunOnce performs a single pass over all pending signals.
func (r *Runner) RunOnce(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	now := r.nowMs()

	maxCreatedAt := now - r.minAge.Milliseconds()
	pending, err := r.signalStore.GetPending(ctx, maxCreatedAt)
	if err != nil {
		observability.RecordLoopRun("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("get pending signals: %w", err)
	}

	result := &RunResult{Scanned: len(pending)}
	observability.DefaultMetrics.SignalsPending.Set(float64(len(pending)))

	if len(pending) == 0 {
		observability.RecordLoopRun("ok", time.Since(started).Seconds())
		return result, nil
	}

	r.log("Evaluating %d pending signals", len(pending))

	type verdict struct {
		resolved bool
		deferred bool
		err      string
	}

	jobs := make(chan *domain.Signal)
	verdicts := make(chan verdict)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sig := range jobs {
				resolved, deferred, err := r.evaluateOne(ctx, sig, now)
				v := verdict{resolved: resolved, deferred: deferred}
				if err != nil {
					v.err = fmt.Sprintf("evaluate %s: %v", sig.SignalID, err)
				}
				verdicts <- v
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sig := range pending {
			select {
			case jobs <- sig:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(verdicts)
	}()

	for v := range verdicts {
		switch {
		case v.err != "":
			result.Errors = append(result.Errors, v.err)
		case v.resolved:
			result.Resolved++
		case v.deferred:
			result.Deferred++
		}
	}

	if err := ctx.Err(); err != nil {
		observability.RecordLoopRun("error", time.Since(started).Seconds())
		return result, err
	}

	r.log("Pass completed: %d scanned, %d resolved, %d deferred, %d errors",
		result.Scanned, result.Resolved, result.Deferred, len(result.Errors))

	observability.RecordLoopRun("ok", time.Since(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulLoop.Set(float64(time.Now().Unix()))
	return result, nil
}

// Run executes RunOnce on every tick until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// Transient failures leave signals pending for the next tick.
			log.Printf("[evalloop] pass failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// evaluateOne fetches the bar window for one signal and persists the
// outcome if it is terminal. Returns (resolved, deferred, err).
func (r *Runner) evaluateOne(ctx context.Context, sig *domain.Signal, nowMs int64) (bool, bool, error) {
	fetchStart := time.Now()
	bars, err := r.barSource.FetchBars(ctx, sig.Symbol, sig.CreatedAtMs, r.barLimit)
	observability.RecordBarFetch(len(bars), time.Since(fetchStart).Seconds(), err)
	if err != nil {
		// Leave the signal pending, the next pass retries.
		return false, false, fmt.Errorf("fetch bars for %s: %w", sig.Symbol, err)
	}

	eval, err := r.evaluator.Evaluate(sig, bars)
	if err != nil {
		observability.RecordEvaluationError(errorType(err))
		return false, false, err
	}

	// A verdict from a still-open window is only final if the scan
	// actually terminated. FALSE means nothing happened yet; a PARTIAL
	// without a stop is an open position that could still upgrade.
	// Results are write-once, so both wait until the signal ages out.
	if !isTerminal(eval) && nowMs-sig.CreatedAtMs < r.resolveAfter.Milliseconds() {
		return false, true, nil
	}

	eval.ResolvedAtMs = nowMs

	if err := r.signalStore.UpdateResult(ctx, eval); err != nil {
		if errors.Is(err, storage.ErrAlreadyResolved) {
			// Another worker or instance got there first.
			return false, false, nil
		}
		return false, false, fmt.Errorf("persist result for %s: %w", sig.SignalID, err)
	}

	observability.RecordSignalEvaluated(string(eval.Outcome))

	if r.barArchive != nil && len(bars) > 0 {
		if err := r.barArchive.InsertBulk(ctx, sig.SignalID, bars); err != nil {
			// Archival is best effort once the outcome is recorded.
			if !errors.Is(err, storage.ErrDuplicateKey) {
				r.log("archive bars for %s: %v", sig.SignalID, err)
			}
		}
	}

	r.log("Resolved %s as %s (%d bars)", sig.SignalID, eval.Outcome, eval.BarsScanned)
	return true, false, nil
}

// isTerminal reports whether an evaluation cannot change with more
// bars: the scan stopped on TP3 or the stop-loss. Window-end verdicts
// (FALSE, or PARTIAL with the position still open) are provisional.
func isTerminal(eval *domain.Evaluation) bool {
	switch eval.Outcome {
	case domain.OutcomeWinner, domain.OutcomeLoser:
		return true
	case domain.OutcomePartial:
		return eval.StopLossHit
	default:
		return false
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, outcome.ErrUnorderedBarSequence):
		return "unordered_bars"
	case errors.Is(err, domain.ErrInvalidLevels):
		return "invalid_levels"
	default:
		return "other"
	}
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf("[evalloop] "+format, args...)
	}
}
