// Package metrics exposes Prometheus metrics for the audit service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamamialezatoz/go-pmaudit/internal/models"
)

const namespace = "pmaudit"

// Metrics holds all audit Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Analysis metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	FetchDuration    prometheus.Histogram
	Recommendations  *prometheus.CounterVec

	// Policy metrics
	PolicyReloads *prometheus.CounterVec
	PolicyOwners  prometheus.Gauge

	// Scoring metrics
	ScoringAttempts *prometheus.CounterVec
	FieldCacheHits  *prometheus.CounterVec
}

// New registers the audit metrics, plus Go runtime and process collectors,
// on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}
	initAnalysisMetrics(m, factory)
	initPolicyMetrics(m, factory)
	initScoringMetrics(m, factory)
	return m
}

func initAnalysisMetrics(m *Metrics, f promauto.Factory) {
	m.AnalysesTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Total page analyses by outcome",
	}, []string{"outcome"})

	m.AnalysisDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Time to extract and match a fetched page",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	m.FetchDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Time to download the audited page",
		Buckets:   prometheus.DefBuckets,
	})

	m.Recommendations = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_total",
		Help:      "Recommendations emitted by verdict",
	}, []string{"verdict"})
}

func initPolicyMetrics(m *Metrics, f promauto.Factory) {
	m.PolicyReloads = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_reloads_total",
		Help:      "Policy reload attempts by outcome",
	}, []string{"outcome"})

	m.PolicyOwners = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "policy_owners",
		Help:      "Number of owners in the active policy table",
	})
}

func initScoringMetrics(m *Metrics, f promauto.Factory) {
	m.ScoringAttempts = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scoring_attempts_total",
		Help:      "Calls to external scoring services by service and outcome",
	}, []string{"service", "outcome"})

	m.FieldCacheHits = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "field_cache_lookups_total",
		Help:      "Field data cache lookups by result",
	}, []string{"result"})
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAnalysis records a finished analysis
func (m *Metrics) ObserveAnalysis(recs models.Recommendations, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues("success").Inc()
	m.AnalysisDuration.Observe(elapsed.Seconds())
	for verdict, n := range recs.CountByVerdict() {
		m.Recommendations.WithLabelValues(string(verdict)).Add(float64(n))
	}
}

// ObserveFetch records the download of a page
func (m *Metrics) ObserveFetch(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(elapsed.Seconds())
}

// AnalysisFailed records an analysis that could not complete
func (m *Metrics) AnalysisFailed(reason string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(reason).Inc()
}

// PolicyReloaded records a reload attempt and the size of the active table
func (m *Metrics) PolicyReloaded(err error, owners int) {
	if m == nil {
		return
	}
	if err != nil {
		m.PolicyReloads.WithLabelValues("failure").Inc()
		return
	}
	m.PolicyReloads.WithLabelValues("success").Inc()
	m.PolicyOwners.Set(float64(owners))
}

// ScoringAttempt records one call to an external scoring service
func (m *Metrics) ScoringAttempt(service string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ScoringAttempts.WithLabelValues(service, outcome).Inc()
}

// FieldCacheLookup records a field data cache hit or miss
func (m *Metrics) FieldCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.FieldCacheHits.WithLabelValues(result).Inc()
}
