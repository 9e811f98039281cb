package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validation outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid"
	OutcomeFailed       = "failed"
	metricNamespace     = "design_coach"
	metricValidationSub = "validation"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	mergeFallback *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors, plus the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: metricValidationSub,
			Name:      "requests_total",
			Help:      "Stage validation requests by stage and outcome.",
		}, []string{"stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: metricValidationSub,
			Name:      "duration_seconds",
			Help:      "Stage validation latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"stage"}),
		mergeFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "merge_fallback_total",
			Help:      "Merges that found no common candidates and blended the lists.",
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.mergeFallback,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveValidation records one stage validation.
func (m *Metrics) ObserveValidation(stage, outcome string, elapsed time.Duration) {
	m.requests.WithLabelValues(stage, outcome).Inc()
	m.duration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// MergeFallback implements coach.Recorder.
func (m *Metrics) MergeFallback(stage string) {
	m.mergeFallback.WithLabelValues(stage).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
