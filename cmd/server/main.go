// Package main provides the unified service that runs all components:
// - Generation (continuous): kline WebSocket feeds, ATR, signal assembly
// - Evaluation (scheduled): pending signals resolved against fresh bars
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/cooldown"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/evalloop"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/generator"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/indicators"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/marketdata"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/observability"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/outcome"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/risk"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage"
	chstore "github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage/clickhouse"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage/memory"
	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage/migrations"
	pgstore "github.com/Ranidorta/trade-alerts-ninja-sub000/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	symbols      []string
	interval     string
	streamURL    string
	restURL      string
	atrPeriod    int
	breakout     int
	cooldownGap  time.Duration
	evalInterval time.Duration
	minAge       time.Duration
	resolveAfter time.Duration
	generate     bool

	// Stores
	stores *allStores

	// Components
	gen    *generator.Generator
	runner *evalloop.Runner
	logger *log.Logger

	// State
	mu               sync.Mutex
	started          time.Time
	lastEvalRun      time.Time
	evalRuns         int
	signalsGenerated int
}

// allStores holds all storage implementations.
type allStores struct {
	signalStore storage.SignalStore
	barArchive  storage.BarArchiveStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	symbols := flag.String("symbols", envOr("SYMBOLS", "BTCUSDT,ETHUSDT"), "Comma-separated symbols to track")
	interval := flag.String("interval", envOr("KLINE_INTERVAL", marketdata.DefaultInterval), "Kline interval (1m, 5m, 15m, 1h)")
	streamURL := flag.String("stream-url", envOr("BINANCE_STREAM_URL", marketdata.DefaultStreamURL), "Binance WebSocket stream URL")
	restURL := flag.String("rest-url", envOr("BINANCE_REST_URL", marketdata.DefaultBaseURL), "Binance REST API URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	generate := flag.Bool("generate", true, "Enable live signal generation from kline streams")
	atrPeriod := flag.Int("atr-period", 14, "ATR period for risk levels")
	breakout := flag.Int("breakout-lookback", 20, "Bars in the breakout lookback window")
	cooldownGap := flag.Duration("cooldown", 30*time.Minute, "Minimum gap between signals per symbol")
	evalInterval := flag.Duration("eval-interval", 5*time.Minute, "Evaluation loop interval")
	minAge := flag.Duration("min-age", evalloop.DefaultMinAge, "Minimum signal age before evaluation")
	resolveAfter := flag.Duration("resolve-after", evalloop.DefaultResolveAfter, "Age after which untriggered signals settle as FALSE")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	symbolList := splitSymbols(*symbols)
	if len(symbolList) == 0 {
		logger.Fatal("--symbols is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Wire generation components
	tracker := cooldown.NewMemoryTracker(cooldownGap.Milliseconds())
	gen := generator.New(risk.NewCalculator(), tracker, domain.DefaultRiskProfile)

	// Wire evaluation components
	restClient := marketdata.NewBinanceClient(
		marketdata.WithBaseURL(*restURL),
		marketdata.WithInterval(*interval),
	)
	runner := evalloop.New(evalloop.Options{
		SignalStore:  stores.signalStore,
		BarArchive:   stores.barArchive,
		BarSource:    restClient,
		Evaluator:    outcome.NewEvaluator(),
		MinAge:       *minAge,
		ResolveAfter: *resolveAfter,
		Verbose:      true,
	})

	server := &Server{
		symbols:      symbolList,
		interval:     *interval,
		streamURL:    *streamURL,
		restURL:      *restURL,
		atrPeriod:    *atrPeriod,
		breakout:     *breakout,
		cooldownGap:  *cooldownGap,
		evalInterval: *evalInterval,
		minAge:       *minAge,
		resolveAfter: *resolveAfter,
		generate:     *generate,
		stores:       stores,
		gen:          gen,
		runner:       runner,
		logger:       logger,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			signalStore: memory.NewSignalStore(),
			barArchive:  memory.NewBarArchiveStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := &allStores{
		signalStore: pgstore.NewSignalStore(pool),
		barArchive:  chstore.NewBarArchiveStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the unified server with all components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	errCh := make(chan error, len(s.symbols)+1)

	// Start one generation stream per symbol
	if s.generate {
		for _, symbol := range s.symbols {
			symbol := symbol
			go func() {
				err := s.runGeneration(ctx, symbol)
				if err != nil && !errors.Is(err, context.Canceled) {
					errCh <- fmt.Errorf("generation %s: %w", symbol, err)
				}
			}()
		}
	}

	// Start evaluation scheduler
	go func() {
		err := s.runEvalScheduler(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("eval scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runGeneration consumes closed klines for one symbol, maintains a
// rolling bar window and emits signals on breakouts of the lookback
// range.
func (s *Server) runGeneration(ctx context.Context, symbol string) error {
	stream, err := marketdata.NewKlineStream(ctx, s.streamURL, symbol, s.interval, nil)
	if err != nil {
		return fmt.Errorf("open kline stream: %w", err)
	}
	defer stream.Close()

	s.logger.Printf("Generation started for %s (%s)", symbol, s.interval)

	// Rolling window large enough for the ATR seed and the lookback.
	maxBars := s.atrPeriod + s.breakout + 2
	var window []*domain.PriceBar

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case bar, ok := <-stream.Bars():
			if !ok {
				return fmt.Errorf("kline stream for %s closed", symbol)
			}

			window = pushBar(window, bar, maxBars)
			if len(window) < s.atrPeriod+s.breakout+1 {
				continue
			}

			s.maybeGenerate(ctx, symbol, window, bar)
		}
	}
}

// pushBar appends bar to window, evicting the oldest entries so the
// window never holds more than maxBars. Evicted slots are cleared so
// the backing array does not pin old bars.
func pushBar(window []*domain.PriceBar, bar *domain.PriceBar, maxBars int) []*domain.PriceBar {
	window = append(window, bar)
	if len(window) > maxBars {
		n := copy(window, window[len(window)-maxBars:])
		for i := n; i < len(window); i++ {
			window[i] = nil
		}
		window = window[:n]
	}
	return window
}

// maybeGenerate emits a signal when the latest close breaks the
// high/low of the preceding lookback window.
func (s *Server) maybeGenerate(ctx context.Context, symbol string, window []*domain.PriceBar, last *domain.PriceBar) {
	lookback := window[len(window)-1-s.breakout : len(window)-1]

	high, low := lookback[0].High, lookback[0].Low
	for _, b := range lookback[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}

	var direction string
	switch {
	case last.Close > high:
		direction = "LONG"
	case last.Close < low:
		direction = "SHORT"
	default:
		return
	}

	atr, err := indicators.LatestATR(window, s.atrPeriod)
	if err != nil {
		s.logger.Printf("ATR for %s: %v", symbol, err)
		return
	}

	sig, err := s.gen.Generate(generator.Input{
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: last.Close,
		ATR:        atr,
		NowMs:      last.TimestampMs,
	})
	if err != nil {
		if errors.Is(err, generator.ErrCooldownActive) {
			observability.DefaultMetrics.CooldownRejections.Inc()
			return
		}
		s.logger.Printf("Generate %s %s: %v", symbol, direction, err)
		return
	}

	if err := s.stores.signalStore.Insert(ctx, sig); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return
		}
		s.logger.Printf("Insert signal %s: %v", sig.SignalID, err)
		return
	}

	observability.RecordSignalGenerated(direction)
	s.mu.Lock()
	s.signalsGenerated++
	s.mu.Unlock()

	s.logger.Printf("Signal %s: %s %s entry=[%.4f, %.4f] sl=%.4f tp3=%.4f",
		sig.SignalID[:12], symbol, direction, sig.EntryMin, sig.EntryMax, sig.StopLoss, sig.TakeProfit3)
}

// runEvalScheduler runs the evaluation loop on schedule.
func (s *Server) runEvalScheduler(ctx context.Context) error {
	s.logger.Printf("Starting evaluation scheduler (interval: %v)...", s.evalInterval)

	ticker := time.NewTicker(s.evalInterval)
	defer ticker.Stop()

	for {
		result, err := s.runner.RunOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.Printf("Evaluation pass error: %v", err)
		} else if result.Scanned > 0 {
			s.logger.Printf("Evaluation pass: %d scanned, %d resolved, %d deferred, %d errors",
				result.Scanned, result.Resolved, result.Deferred, len(result.Errors))
		}

		s.mu.Lock()
		s.lastEvalRun = time.Now()
		s.evalRuns++
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string    `json:"status"`
	Uptime           string    `json:"uptime"`
	Symbols          []string  `json:"symbols"`
	LastEvalRun      time.Time `json:"last_eval_run,omitempty"`
	EvalRuns         int       `json:"eval_runs"`
	SignalsGenerated int       `json:"signals_generated"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).String(),
		Symbols:          s.symbols,
		LastEvalRun:      s.lastEvalRun,
		EvalRuns:         s.evalRuns,
		SignalsGenerated: s.signalsGenerated,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
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

// envOr returns the env var value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
