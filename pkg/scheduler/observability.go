package scheduler

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	dispatchCompleted = "completed"
	dispatchFailed    = "failed"
	dispatchSkipped   = "skipped"
	dispatchLockError = "lock_error"
)

var dispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "meet_scheduler_dispatch_total",
		Help: "Scheduler execution attempts by task and outcome",
	},
	[]string{"task", "status"},
)

func recordDispatch(taskName, status string) {
	dispatchTotal.WithLabelValues(normalizeLabel(taskName), normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
