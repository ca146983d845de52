package executor

import "time"

// Metrics receives engine lifecycle notifications for pkg/metrics to turn
// into Prometheus series (spec §6.8). Kept as a narrow interface so the
// engine's unit tests can use a no-op implementation.
type Metrics interface {
	TaskStarted(sessionID string)
	TaskFinished(sessionID, status string, duration time.Duration)
	QueueDepth(sessionID string, depth int)
}

// NoopMetrics discards every notification.
type NoopMetrics struct{}

func (NoopMetrics) TaskStarted(string)                       {}
func (NoopMetrics) TaskFinished(string, string, time.Duration) {}
func (NoopMetrics) QueueDepth(string, int)                    {}
