package recording

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	eventStarted       = "started"
	eventStartRejected = "start_rejected"
	eventStartTimeout  = "start_timeout"
	eventFinished      = "finished"
	eventAbortedStale  = "aborted_stale"
	eventOrphanRelease = "orphan_lock_released"
)

var lifecycleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "meet_recording_lifecycle_total",
	Help: "Recording lifecycle events by type.",
}, []string{"event"})

func recordLifecycleEvent(event string) {
	lifecycleTotal.WithLabelValues(event).Inc()
}
