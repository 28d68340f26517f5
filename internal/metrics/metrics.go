package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters exported to Prometheus
type Metrics struct {
	// Capture
	FramesRead   atomic.Uint64
	ReadFailures atomic.Uint64
	Reconnects   atomic.Uint64

	// Detection
	Detections        atomic.Uint64
	InferenceFailures atomic.Uint64

	// Alerts
	AlertsEmitted    atomic.Uint64
	AlertsSuppressed atomic.Uint64
	PersistFailures  atomic.Uint64

	// Streaming
	FramesPublished   atomic.Uint64
	SubscriberDrops   atomic.Uint64
	SubscriberEvicted atomic.Uint64
	Subscribers       atomic.Int64

	IterationPanics atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) prometheus.Collector {
	return prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	)
}

func (m *Metrics) register() {
	m.registry.MustRegister(
		m.counter("vigil_frames_read_total", "Frames read from the active source", &m.FramesRead),
		m.counter("vigil_read_failures_total", "Failed frame reads", &m.ReadFailures),
		m.counter("vigil_reconnects_total", "Source reconnect attempts", &m.Reconnects),
		m.counter("vigil_detections_total", "Objects detected across all frames", &m.Detections),
		m.counter("vigil_inference_failures_total", "Frames whose inference failed", &m.InferenceFailures),
		m.counter("vigil_alerts_emitted_total", "Alerts emitted after cooldown", &m.AlertsEmitted),
		m.counter("vigil_alerts_suppressed_total", "Alerts suppressed by cooldown", &m.AlertsSuppressed),
		m.counter("vigil_persist_failures_total", "Best-effort store writes that failed", &m.PersistFailures),
		m.counter("vigil_frames_published_total", "Encoded frames published to subscribers", &m.FramesPublished),
		m.counter("vigil_subscriber_drops_total", "Frames dropped for slow subscribers", &m.SubscriberDrops),
		m.counter("vigil_subscribers_evicted_total", "Subscribers evicted after stalling", &m.SubscriberEvicted),
		m.counter("vigil_iteration_panics_total", "Pipeline iterations recovered from panic", &m.IterationPanics),
	)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "vigil_stream_subscribers",
			Help: "Live feed subscribers currently connected",
		},
		func() float64 { return float64(m.Subscribers.Load()) },
	))

	m.registry.MustRegister(collectors.NewGoCollector())
}

// Handler returns the HTTP handler serving this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
