package observability

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Lint metrics
	FilesLintedTotal *prometheus.CounterVec
	LintDuration     *prometheus.HistogramVec
	ViolationsTotal  *prometheus.CounterVec
	ParseErrorsTotal prometheus.Counter
	RulePanicsTotal  *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		FilesLintedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xivlint_files_linted_total",
				Help: "Total number of files linted",
			},
			[]string{"language"},
		),
		LintDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xivlint_lint_duration_seconds",
				Help:    "Time to parse and lint a single file in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"language"},
		),
		ViolationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xivlint_violations_total",
				Help: "Total number of reported violations",
			},
			[]string{"rule", "severity"},
		),
		ParseErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "xivlint_parse_errors_total",
				Help: "Total number of files that failed to parse",
			},
		),
		RulePanicsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xivlint_rule_panics_total",
				Help: "Total number of rule runs that panicked",
			},
			[]string{"rule"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "xivlint_cache_hits_total",
				Help: "Total number of lint results served from cache",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "xivlint_cache_misses_total",
				Help: "Total number of lint results not found in cache",
			},
		),
		registry: registry,
	}

	// Register all metrics
	registry.MustRegister(
		m.FilesLintedTotal,
		m.LintDuration,
		m.ViolationsTotal,
		m.ParseErrorsTotal,
		m.RulePanicsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// RecordLint counts a linted file and its duration
func (m *Metrics) RecordLint(language string, d time.Duration) {
	if m == nil {
		return
	}
	m.FilesLintedTotal.WithLabelValues(language).Inc()
	m.LintDuration.WithLabelValues(language).Observe(d.Seconds())
}

// RecordViolation counts a reported violation. Parse errors have no rule.
func (m *Metrics) RecordViolation(rule, severity string) {
	if m == nil {
		return
	}
	if rule == "" {
		rule = "parse"
	}
	m.ViolationsTotal.WithLabelValues(rule, severity).Inc()
}

// RecordParseError counts a file that could not be parsed
func (m *Metrics) RecordParseError() {
	if m == nil {
		return
	}
	m.ParseErrorsTotal.Inc()
}

// RecordRulePanic counts a rule that panicked on a file
func (m *Metrics) RecordRulePanic(rule string) {
	if m == nil {
		return
	}
	m.RulePanicsTotal.WithLabelValues(rule).Inc()
}

// RecordCacheHit counts a cached result
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// RecordCacheMiss counts a cache lookup that had to lint
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// Handler serves the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry) {
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
}
