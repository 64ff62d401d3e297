package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	cycles         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	transitions    *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	queueDepth     prometheus.Gauge
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP errors by path, method and error code.",
		}, []string{"path", "method", "code"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_monitor_cycles_total",
			Help: "SLA monitor cycles by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_monitor_cycle_duration_seconds",
			Help:    "Wall time of one scan-and-apply cycle.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_transitions_total",
			Help: "SLA transitions by dimension, kind and result.",
		}, []string{"dimension", "kind", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_notifications_total",
			Help: "SLA notification sends by transport and outcome.",
		}, []string{"transport", "outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sla_monitor_queue_depth",
			Help: "Cycles waiting for a worker.",
		}),
	}
	m.registry.MustRegister(
		m.requests, m.requestLatency, m.errors,
		m.cycles, m.cycleDuration, m.transitions, m.notifications, m.queueDepth,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordCycle records one finished cycle.
func (m *Metrics) RecordCycle(trigger domain.JobTrigger, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(string(trigger), outcome).Inc()
	m.cycleDuration.Observe(duration.Seconds())
}

// RecordTransition records the result of one conditional update.
func (m *Metrics) RecordTransition(tr domain.SLATransition, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(tr.Dimension), string(tr.Kind), result).Inc()
}

// RecordNotification records one transport send.
func (m *Metrics) RecordNotification(transport, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(transport, outcome).Inc()
}

// SetQueueDepth reports the number of waiting cycles.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
