// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Candidate metrics
	CandidatesEvaluated *prometheus.CounterVec
	CandidateDuration   prometheus.Histogram
	BestReturnPercent   prometheus.Gauge

	// Simulation metrics
	TradesSimulated prometheus.Counter
	SymbolsSkipped  prometheus.Counter

	// Storage metrics
	StoreOpDuration *prometheus.HistogramVec
	StoreOpErrors   *prometheus.CounterVec

	// Market data metrics
	MarketDataRequests *prometheus.CounterVec
	BreakerOpen        prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "strategy_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total number of backtest and optimization runs by outcome",
		}, []string{"kind", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		}, []string{"kind"}),

		CandidatesEvaluated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "candidates_evaluated_total",
			Help:      "Total number of evaluated candidates by algorithm and outcome",
		}, []string{"algorithm", "outcome"}),
		CandidateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "candidate_duration_seconds",
			Help:      "Time to simulate and score one candidate",
			Buckets:   prometheus.DefBuckets,
		}),
		BestReturnPercent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "best_return_percent",
			Help:      "Total return percent of the current leaderboard leader",
		}),

		TradesSimulated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_total",
			Help:      "Total number of simulated trades",
		}),
		SymbolsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "symbols_skipped_total",
			Help:      "Total number of symbols skipped because of data gaps",
		}),

		StoreOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "op_duration_seconds",
			Help:      "Storage operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		StoreOpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "op_errors_total",
			Help:      "Total number of failed storage operations",
		}, []string{"backend", "operation"}),

		MarketDataRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "requests_total",
			Help:      "Total number of bar range requests by status",
		}, []string{"status"}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "breaker_open",
			Help:      "1 when the market data circuit breaker is open",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(kind, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(kind, status).Inc()
	m.RunDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordCandidate records one evaluated candidate.
func (m *Metrics) RecordCandidate(algorithm, outcome string, seconds float64, trades int) {
	if m == nil {
		return
	}
	m.CandidatesEvaluated.WithLabelValues(algorithm, outcome).Inc()
	m.CandidateDuration.Observe(seconds)
	m.TradesSimulated.Add(float64(trades))
}

// RecordBest updates the leader gauge.
func (m *Metrics) RecordBest(returnPercent float64) {
	if m == nil {
		return
	}
	m.BestReturnPercent.Set(returnPercent)
}

// RecordSkippedSymbols counts symbols dropped from a simulation.
func (m *Metrics) RecordSkippedSymbols(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SymbolsSkipped.Add(float64(n))
}

// RecordStoreOp records storage operation metrics.
func (m *Metrics) RecordStoreOp(backend, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.StoreOpDuration.WithLabelValues(backend, operation).Observe(seconds)
	if err != nil {
		m.StoreOpErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordMarketDataRequest counts a bar range request.
func (m *Metrics) RecordMarketDataRequest(status string) {
	if m == nil {
		return
	}
	m.MarketDataRequests.WithLabelValues(status).Inc()
}

// SetBreakerOpen mirrors the circuit breaker state.
func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
