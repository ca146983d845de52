// Package metrics turns engine and HTTP server lifecycle notifications into
// Prometheus series (spec §6.8).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the daemon's Prometheus registry wrapper. It implements
// executor.Metrics so the engine can report task lifecycle events without
// importing this package (avoiding an import cycle), and exposes a few
// extra methods the HTTP layer calls directly for backpressure accounting.
type Metrics struct {
	tasksActive      prometheus.Gauge
	tasksQueueDepth  *prometheus.GaugeVec
	taskDuration     *prometheus.HistogramVec
	backpressureDrop *prometheus.CounterVec
	sseClients       prometheus.Gauge
}

// New creates and registers every series with reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests), or
// prometheus.DefaultRegisterer wrapped in a registry for production.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		tasksActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "execd_tasks_active",
			Help: "Number of tasks currently running across all sessions",
		}),
		tasksQueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "execd_tasks_queue_depth",
			Help: "Depth of the per-session FIFO task queue",
		}, []string{"session_id"}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "execd_task_duration_seconds",
			Help:    "Task turn duration in seconds, from start_task to terminal event",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"status"}),
		backpressureDrop: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "execd_backpressure_drops_total",
			Help: "Requests or frames dropped under backpressure, by reason",
		}, []string{"reason"}),
		sseClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "execd_sse_clients",
			Help: "Number of currently connected SSE clients",
		}),
	}
}

// TaskStarted implements executor.Metrics.
func (m *Metrics) TaskStarted(sessionID string) {
	m.tasksActive.Inc()
}

// TaskFinished implements executor.Metrics.
func (m *Metrics) TaskFinished(sessionID, status string, duration time.Duration) {
	m.tasksActive.Dec()
	m.taskDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// QueueDepth implements executor.Metrics.
func (m *Metrics) QueueDepth(sessionID string, depth int) {
	m.tasksQueueDepth.WithLabelValues(sessionID).Set(float64(depth))
}

// BackpressureDrop records a request or SSE frame dropped under load.
// reason is one of rate_limit, inflight, sse_backpressure, body_too_large.
func (m *Metrics) BackpressureDrop(reason string) {
	m.backpressureDrop.WithLabelValues(reason).Inc()
}

// SSEClientConnected/SSEClientDisconnected track the live SSE client gauge.
func (m *Metrics) SSEClientConnected()    { m.sseClients.Inc() }
func (m *Metrics) SSEClientDisconnected() { m.sseClients.Dec() }
