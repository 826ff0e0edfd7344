package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// kind: progress, time_tracked, milestone_created, milestone_status
	ProjectMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_mutations_total",
			Help: "Total number of project mutations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	TrackedSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "project_tracked_seconds_total",
			Help: "Seconds of work added to projects through time tracking",
		},
	)

	DeadlineRemindersPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadline_reminders_published_total",
			Help: "Deadline reminders published by the sweeper",
		},
		[]string{"status"}, // status: published, skipped, failed
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementProjectMutation(kind, outcome string) {
	ProjectMutations.WithLabelValues(kind, outcome).Inc()
}

// AddTrackedSeconds ignores non-positive deltas; a counter cannot go down.
func AddTrackedSeconds(delta int64) {
	if delta <= 0 {
		return
	}
	TrackedSeconds.Add(float64(delta))
}

func IncrementDeadlineReminder(status string) {
	DeadlineRemindersPublished.WithLabelValues(status).Inc()
}
