// Package metrics exposes the telemetry service's prometheus collectors.
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "telemetry"

// Metrics owns a private registry so tests can build independent instances.
type Metrics struct {
	registry          *prometheus.Registry
	readingsIngested  *prometheus.CounterVec
	ingestionFailures *prometheus.CounterVec
	projectionSkipped *prometheus.CounterVec
	analyticsRequests *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers all collectors plus the go/process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		readingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Readings appended to the ledger.",
		}, []string{"stream"}),
		ingestionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_failures_total",
			Help:      "Ingestion calls that failed, by failing write.",
		}, []string{"stream", "stage"}),
		projectionSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_skipped_total",
			Help:      "Status upserts ignored because a newer reading was already projected.",
		}, []string{"stream"}),
		analyticsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_requests_total",
			Help:      "Vehicle performance queries by outcome.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.readingsIngested,
		m.ingestionFailures,
		m.projectionSkipped,
		m.analyticsRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ReadingIngested(stream string) {
	if m == nil {
		return
	}
	m.readingsIngested.WithLabelValues(stream).Inc()
}

func (m *Metrics) IngestionFailed(stream, stage string) {
	if m == nil {
		return
	}
	m.ingestionFailures.WithLabelValues(stream, stage).Inc()
}

func (m *Metrics) ProjectionSkipped(stream string) {
	if m == nil {
		return
	}
	m.projectionSkipped.WithLabelValues(stream).Inc()
}

func (m *Metrics) AnalyticsRequest(outcome string) {
	if m == nil {
		return
	}
	m.analyticsRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
