// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Signal metrics
	SignalsGenerated   *prometheus.CounterVec
	SignalsEvaluated   *prometheus.CounterVec
	SignalsPending     prometheus.Gauge
	EvaluationErrors   *prometheus.CounterVec
	CooldownRejections prometheus.Counter

	// Market data metrics
	BarsFetched     prometheus.Counter
	BarFetchErrors  prometheus.Counter
	BarFetchLatency prometheus.Histogram
	WSReconnects    prometheus.Counter

	// Loop metrics
	LoopRunsTotal *prometheus.CounterVec
	LoopDuration  prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulLoop prometheus.Gauge
	UptimeSeconds      prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_alerts"
	}

	return &Metrics{
		// Signal metrics
		SignalsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "generated_total",
			Help:      "Total number of signals generated by direction",
		}, []string{"direction"}),
		SignalsEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "evaluated_total",
			Help:      "Total number of signals resolved by outcome",
		}, []string{"outcome"}),
		SignalsPending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "pending",
			Help:      "Number of signals awaiting a terminal outcome",
		}),
		EvaluationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "evaluation_errors_total",
			Help:      "Total number of evaluation errors by type",
		}, []string{"error_type"}),
		CooldownRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "cooldown_rejections_total",
			Help:      "Total number of signals suppressed by the cooldown gate",
		}),

		// Market data metrics
		BarsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "bars_fetched_total",
			Help:      "Total number of OHLC bars fetched",
		}),
		BarFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "bar_fetch_errors_total",
			Help:      "Total number of failed bar fetches",
		}),
		BarFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "bar_fetch_latency_seconds",
			Help:      "Bar fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "ws_reconnects_total",
			Help:      "Total number of websocket stream reconnects",
		}),

		// Loop metrics
		LoopRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evalloop",
			Name:      "runs_total",
			Help:      "Total number of evaluation loop runs by status",
		}, []string{"status"}),
		LoopDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evalloop",
			Name:      "duration_seconds",
			Help:      "Evaluation loop run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulLoop: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_loop_timestamp",
			Help:      "Unix timestamp of last successful evaluation loop run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSignalGenerated increments the signals generated counter.
func RecordSignalGenerated(direction string) {
	DefaultMetrics.SignalsGenerated.WithLabelValues(direction).Inc()
}

// RecordSignalEvaluated increments the resolved signals counter.
func RecordSignalEvaluated(outcome string) {
	DefaultMetrics.SignalsEvaluated.WithLabelValues(outcome).Inc()
}

// RecordEvaluationError records an evaluation error.
func RecordEvaluationError(errorType string) {
	DefaultMetrics.EvaluationErrors.WithLabelValues(errorType).Inc()
}

// RecordBarFetch records a bar fetch attempt.
func RecordBarFetch(bars int, seconds float64, err error) {
	DefaultMetrics.BarFetchLatency.Observe(seconds)
	if err != nil {
		DefaultMetrics.BarFetchErrors.Inc()
		return
	}
	DefaultMetrics.BarsFetched.Add(float64(bars))
}

// RecordLoopRun records an evaluation loop run.
func RecordLoopRun(status string, durationSeconds float64) {
	DefaultMetrics.LoopRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.LoopDuration.Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
