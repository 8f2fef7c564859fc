// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	transitions     *prometheus.CounterVec
	batchItems      *prometheus.HistogramVec
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auditit",
			Name:      "item_transitions_total",
			Help:      "Committed item lifecycle transitions by action.",
		}, []string{"action"}),
		batchItems: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auditit",
			Name:      "batch_items",
			Help:      "Number of items in committed batch operations.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"operation"}),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auditit",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auditit",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.batchItems,
		m.requestCount,
		m.requestDuration,
	)
	return m
}

// Transition counts one committed transition.
func (m *Metrics) Transition(action string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action).Inc()
}

// Batch records the size of one committed batch operation.
func (m *Metrics) Batch(operation string, n int) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues(operation).Observe(float64(n))
}

// Request records one served HTTP request.
func (m *Metrics) Request(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
