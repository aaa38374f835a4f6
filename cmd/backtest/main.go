// Package main provides the one-shot backtest CLI: stored signals are
// replayed against historical bars and the outcome report is printed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/backtest"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/marketdata"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/outcome"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
	pgstore "github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage/postgres"
)

func main() {
	// Parse flags
	symbols := flag.String("symbols", "", "Comma-separated symbols to backtest (required)")
	interval := flag.String("interval", marketdata.DefaultInterval, "Kline interval (1m, 5m, 15m, 1h)")
	restURL := flag.String("rest-url", marketdata.DefaultBaseURL, "Binance REST API URL")
	policy := flag.String("exit-policy", string(outcome.PolicyTakeProfitFirst), "Intrabar tie-break: TP_FIRST or SL_FIRST")
	barLimit := flag.Int("bar-limit", 1000, "Maximum bars fetched per signal")

	// Storage
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	verbose := flag.Bool("verbose", false, "Log each signal verdict")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	symbolList := splitSymbols(*symbols)
	if len(symbolList) == 0 {
		logger.Fatal("--symbols is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	evaluator, err := outcome.NewEvaluatorWithPolicy(outcome.ExitPolicy(strings.ToUpper(*policy)))
	if err != nil {
		logger.Fatalf("Invalid exit policy %q: must be TP_FIRST or SL_FIRST", *policy)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores
	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	var signalStore storage.SignalStore = pgstore.NewSignalStore(pool)

	barSource := marketdata.NewBinanceClient(
		marketdata.WithBaseURL(*restURL),
		marketdata.WithInterval(*interval),
	)

	runner := backtest.New(backtest.Options{
		SignalStore: signalStore,
		BarSource:   barSource,
		Evaluator:   evaluator,
		BarLimit:    *barLimit,
		Verbose:     *verbose,
	})

	logger.Printf("Running backtest: symbols=%v interval=%s policy=%s",
		symbolList, *interval, *policy)

	report, err := runner.RunAll(ctx, symbolList)
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Println()
		fmt.Println("=== Backtest Report ===")
		fmt.Print(report.String())
	}
}

// splitSymbols parses a comma-separated symbol list.
func splitSymbols(raw string) []string {
	var list []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			list = append(list, s)
		}
	}
	return list
}
