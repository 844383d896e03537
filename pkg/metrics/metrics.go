// Package metrics exposes the server's operational counters through the
// standard Prometheus client library, constructed once at startup and
// threaded through the reactor/worker/sweep components the same way the
// teacher threads its logging.Logger through every component rather than
// reaching for package-level globals.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric this server records. A nil *Registry is
// not valid; construct one with NewRegistry.
type Registry struct {
	registerer prometheus.Registerer

	ActiveConnections prometheus.Gauge
	RequestsTotal     *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	GrammarCompiles   prometheus.Counter
	BytesServed       prometheus.Counter
}

// NewRegistry constructs and registers this server's metrics against reg.
// Passing prometheus.NewRegistry() (rather than the global DefaultRegisterer)
// keeps multiple Registry instances, as used in tests, from colliding.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		registerer: reg,
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fileserverd",
			Name:      "active_connections",
			Help:      "Number of currently open client connections.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fileserverd",
			Name:      "requests_total",
			Help:      "Total requests handled, labeled by method and response status.",
		}, []string{"method", "status"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fileserverd",
			Name:      "sweep_duration_seconds",
			Help:      "Time taken by each LRU idle-connection sweep pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		GrammarCompiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fileserverd",
			Name:      "grammar_compiles_total",
			Help:      "Number of times a BNF grammar was compiled.",
		}),
		BytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fileserverd",
			Name:      "bytes_served_total",
			Help:      "Total response body bytes written to clients.",
		}),
	}
	reg.MustRegister(
		m.ActiveConnections,
		m.RequestsTotal,
		m.SweepDuration,
		m.GrammarCompiles,
		m.BytesServed,
	)
	return m
}

// ConnectionOpened and ConnectionClosed track the active connection gauge
// around a connection's lifetime.
func (m *Registry) ConnectionOpened() { m.ActiveConnections.Inc() }
func (m *Registry) ConnectionClosed() { m.ActiveConnections.Dec() }

// RequestHandled records one completed request.
func (m *Registry) RequestHandled(method, status string) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
}

// ObserveSweep records how long an LRU sweep pass took.
func (m *Registry) ObserveSweep(d time.Duration) {
	m.SweepDuration.Observe(d.Seconds())
}
