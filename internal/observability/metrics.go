package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the HTTP and USSD surfaces.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpErrors    *prometheus.CounterVec
	ussdRequests  *prometheus.CounterVec
	registrations *prometheus.CounterVec
	activeSession prometheus.Gauge
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Handler errors by path, method and error code.",
		}, []string{"path", "method", "code"}),
		ussdRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ussd_requests_total",
			Help: "Processed USSD requests by step and outcome.",
		}, []string{"step", "outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "member_registrations_total",
			Help: "Completed member registrations by channel.",
		}, []string{"channel"}),
		activeSession: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ussd_active_sessions",
			Help: "Active USSD sessions at last introspection.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.httpErrors,
		m.ussdRequests,
		m.registrations,
		m.activeSession,
	)
	return m
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, method, code).Inc()
}

// RecordUSSD records one processed gateway request.
func (m *Metrics) RecordUSSD(step, outcome string) {
	if m == nil {
		return
	}
	m.ussdRequests.WithLabelValues(step, outcome).Inc()
}

// RecordRegistration records one completed registration.
func (m *Metrics) RecordRegistration(channel string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(channel).Inc()
}

// SetActiveSessions updates the active session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSession.Set(float64(n))
}
