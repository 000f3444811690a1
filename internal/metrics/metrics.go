package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordAdvisoryLookup(outcome string)
	RecordAdvisoryScore(score float64)
	RecordUpstreamCall(source, status string, duration time.Duration)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// Advisory lookup outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeFallback      = "fallback"
	OutcomeNotFound      = "not_found"
	OutcomeUpstreamError = "upstream_error"
	OutcomeInvalid       = "invalid"
)

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordAdvisoryLookup(outcome string)                              {}
func (m *NoOpMetrics) RecordAdvisoryScore(score float64)                                {}
func (m *NoOpMetrics) RecordUpstreamCall(source, status string, duration time.Duration) {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                             {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)                           {}
func (m *NoOpMetrics) Handler() http.Handler                                            { return http.NotFoundHandler() }

// PrometheusMetrics exports everything on its own registry.
type PrometheusMetrics struct {
	registry         *prometheus.Registry
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	advisoryLookups  *prometheus.CounterVec
	advisoryScores   prometheus.Histogram
	upstreamDuration *prometheus.HistogramVec
	dbConnections    prometheus.Gauge
	dbQueries        *prometheus.CounterVec
}

// NewPrometheus registers the collectors on a fresh registry.
func NewPrometheus() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelsafe_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travelsafe_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		advisoryLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelsafe_advisory_lookups_total",
				Help: "Advisory lookups by outcome",
			},
			[]string{"outcome"},
		),
		advisoryScores: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "travelsafe_advisory_score",
				Help:    "Distribution of computed advisory scores",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		upstreamDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travelsafe_upstream_request_duration_seconds",
				Help:    "Latency of calls to advisory and geolocation sources",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"source", "status"},
		),
		dbConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "travelsafe_db_connections_active",
				Help: "Acquired connections in the database pool",
			},
		),
		dbQueries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelsafe_db_queries_total",
				Help: "Database queries by operation and status",
			},
			[]string{"operation", "status"},
		),
	}
}

func (m *PrometheusMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordAdvisoryLookup(outcome string) {
	m.advisoryLookups.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) RecordAdvisoryScore(score float64) {
	m.advisoryScores.Observe(score)
}

func (m *PrometheusMetrics) RecordUpstreamCall(source, status string, duration time.Duration) {
	m.upstreamDuration.WithLabelValues(source, status).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) SetDBConnectionsActive(count float64) {
	m.dbConnections.Set(count)
}

func (m *PrometheusMetrics) RecordDBQuery(operation, status string) {
	m.dbQueries.WithLabelValues(operation, status).Inc()
}

func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init switches the global instance to Prometheus.
func Init() {
	globalMetrics = NewPrometheus()
}

// Set replaces the global instance; tests use it to install fakes.
func Set(m Metrics) {
	if m == nil {
		m = &NoOpMetrics{}
	}
	globalMetrics = m
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordAdvisoryLookup counts one advisory lookup by outcome
func RecordAdvisoryLookup(outcome string) {
	globalMetrics.RecordAdvisoryLookup(outcome)
}

func RecordAdvisoryScore(score float64) {
	globalMetrics.RecordAdvisoryScore(score)
}

// RecordUpstreamCall records latency of a call to a third-party source
func RecordUpstreamCall(source, status string, duration time.Duration) {
	globalMetrics.RecordUpstreamCall(source, status, duration)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}
