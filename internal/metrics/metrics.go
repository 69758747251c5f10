package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all relay metrics.
type Metrics struct {
	// Frame flow counters
	FramesPublished atomic.Uint64
	FramesDelivered atomic.Uint64
	FramesDropped   atomic.Uint64 // skipped for slow watchers

	// Connection gauges
	ActiveWatchers  atomic.Int64
	ActiveUploaders atomic.Int64

	// Access gate counters
	AuthRejections atomic.Uint64

	// Administrative counters
	AdminDisconnects atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

// registerPrometheusMetrics registers all metrics with Prometheus.
func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_frames_published_total",
			Help: "Total frames accepted from uploaders",
		},
		func() float64 { return float64(m.FramesPublished.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_frames_delivered_total",
			Help: "Total frame deliveries to watchers",
		},
		func() float64 { return float64(m.FramesDelivered.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_frames_dropped_total",
			Help: "Total frame deliveries skipped for slow watchers",
		},
		func() float64 { return float64(m.FramesDropped.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_active_watchers",
			Help: "Number of open watcher connections",
		},
		func() float64 { return float64(m.ActiveWatchers.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_active_uploaders",
			Help: "Number of open uploader connections",
		},
		func() float64 { return float64(m.ActiveUploaders.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_auth_rejections_total",
			Help: "Total requests rejected by the access gate",
		},
		func() float64 { return float64(m.AuthRejections.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_admin_disconnects_total",
			Help: "Total administrative session disconnects",
		},
		func() float64 { return float64(m.AdminDisconnects.Load()) },
	))
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
