package room

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	sweepDeleted = "deleted"
	sweepMarked  = "marked"
	sweepFailed  = "failed"
)

var sweepOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "meet_room_gc_outcomes_total",
		Help: "Room garbage-collection outcomes per room processed",
	},
	[]string{"outcome"},
)

func recordSweepOutcome(outcome string) {
	sweepOutcomes.WithLabelValues(outcome).Inc()
}
