// Package metrics exposes Prometheus collectors for the capture session.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netpanel"

// Metrics holds the collectors registered for one process.
type Metrics struct {
	registry *prometheus.Registry

	captured          prometheus.Counter
	dropped           prometheus.Counter
	bodyFetchFailures prometheus.Counter
	bodiesTruncated   prometheus.Counter
	logEntries        prometheus.Gauge
	exports           *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		captured: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_captured_total",
			Help:      "Finished requests appended to the session log.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_dropped_total",
			Help:      "Finished requests ignored because recording was off.",
		}),
		bodyFetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "body_fetch_failures_total",
			Help:      "Response body retrievals that failed.",
		}),
		bodiesTruncated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bodies_truncated_total",
			Help:      "Response bodies cut to the configured size limit.",
		}),
		logEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "log_entries",
			Help:      "Entries currently held in the session log.",
		}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Export actions by format and outcome.",
		}, []string{"format", "outcome"}),
	}
}

func (m *Metrics) Captured() {
	if m == nil {
		return
	}
	m.captured.Inc()
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) BodyFetchFailed() {
	if m == nil {
		return
	}
	m.bodyFetchFailures.Inc()
}

func (m *Metrics) BodyTruncated() {
	if m == nil {
		return
	}
	m.bodiesTruncated.Inc()
}

// SetLogEntries records the current log length.
func (m *Metrics) SetLogEntries(n int) {
	if m == nil {
		return
	}
	m.logEntries.Set(float64(n))
}

// Export counts one export action. outcome is "ok" or a short failure reason.
func (m *Metrics) Export(format, outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
