// Package metrics holds the Prometheus instrumentation for analyses, the
// result cache and reasoning-service calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sanhita"

// Cache lookup outcomes
const (
	CacheExact = "exact"
	CacheNear  = "near"
	CacheMiss  = "miss"
)

// Metrics holds all sanhita Prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	AnalysisErrors   *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec

	CacheLookups *prometheus.CounterVec
	CacheWrites  *prometheus.CounterVec
	CacheEntries prometheus.Gauge

	FallbacksTotal  *prometheus.CounterVec
	ReasonerLatency *prometheus.HistogramVec
}

// New registers every metric on a fresh registry together with the Go and
// process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}
	initAnalysisMetrics(m, promauto.With(reg))
	initCacheMetrics(m, promauto.With(reg))
	initReasonerMetrics(m, promauto.With(reg))
	return m
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and embedding
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func initAnalysisMetrics(m *Metrics, f promauto.Factory) {
	m.AnalysesTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Completed analyses by strategy and result status",
	}, []string{"strategy", "status"})

	m.AnalysisErrors = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_errors_total",
		Help:      "Failed analyses by error kind",
	}, []string{"kind"})

	m.AnalysisDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "End-to-end analysis time",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
	}, []string{"strategy"})
}

func initCacheMetrics(m *Metrics, f promauto.Factory) {
	m.CacheLookups = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Result cache lookups by outcome (exact, near, miss)",
	}, []string{"outcome"})

	m.CacheWrites = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_writes_total",
		Help:      "Result cache writes by outcome (stored, kept, error)",
	}, []string{"outcome"})

	m.CacheEntries = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_entries",
		Help:      "Entries currently held by the result cache",
	})
}

func initReasonerMetrics(m *Metrics, f promauto.Factory) {
	m.FallbacksTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallbacks_total",
		Help:      "Reasoner stages that substituted their fallback fixture",
	}, []string{"stage"})

	m.ReasonerLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reasoner_call_duration_seconds",
		Help:      "Reasoning-service call latency by stage and outcome",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
	}, []string{"stage", "outcome"})
}

// RecordAnalysis records a completed analysis
func (m *Metrics) RecordAnalysis(strategy, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(strategy, status).Inc()
	m.AnalysisDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordError records a failed analysis
func (m *Metrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.AnalysisErrors.WithLabelValues(kind).Inc()
}

// RecordCacheLookup records an exact hit, near-duplicate hit or miss
func (m *Metrics) RecordCacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

// RecordCacheWrite records a write attempt and the resulting entry count
func (m *Metrics) RecordCacheWrite(outcome string, entries int) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(outcome).Inc()
	m.CacheEntries.Set(float64(entries))
}

// RecordFallback records a stage that degraded to its fallback fixture
func (m *Metrics) RecordFallback(stage string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(stage).Inc()
}

// RecordReasonerCall records one reasoning-service call
func (m *Metrics) RecordReasonerCall(stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ReasonerLatency.WithLabelValues(stage, outcome).Observe(duration.Seconds())
}
