// Package metrics exposes Prometheus collectors for bookings, room locks,
// snapshots and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build several instances.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	Proposals     *prometheus.CounterVec
	Cancellations *prometheus.CounterVec
	LockWait      prometheus.Histogram
	Snapshots     *prometheus.CounterVec
	SnapshotTime  prometheus.Histogram
}

// New registers every collector under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_proposals_total",
			Help:      "Booking proposals by outcome.",
		}, []string{"outcome"}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_cancellations_total",
			Help:      "Booking cancellations by outcome.",
		}, []string{"outcome"}),
		LockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "room_lock_wait_seconds",
			Help:      "Time spent waiting for room locks.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshot attempts by result.",
		}, []string{"result"}),
		SnapshotTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent writing snapshots.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Proposals,
		m.Cancellations,
		m.LockWait,
		m.Snapshots,
		m.SnapshotTime,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveProposal counts a booking proposal outcome.
func (m *Metrics) ObserveProposal(outcome string) {
	m.Proposals.WithLabelValues(outcome).Inc()
}

// ObserveCancellation counts a cancellation outcome.
func (m *Metrics) ObserveCancellation(outcome string) {
	m.Cancellations.WithLabelValues(outcome).Inc()
}

// ObserveLockWait records time spent waiting for a room lock.
func (m *Metrics) ObserveLockWait(waited time.Duration) {
	m.LockWait.Observe(waited.Seconds())
}

// ObserveSnapshot records a snapshot attempt.
func (m *Metrics) ObserveSnapshot(took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Snapshots.WithLabelValues(result).Inc()
	m.SnapshotTime.Observe(took.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, took time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func statusLabel(status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status)
}
