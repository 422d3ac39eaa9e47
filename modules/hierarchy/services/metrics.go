package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
)

var (
	hierarchyMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hierarchy",
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Total number of hierarchy mutations broken down by operation and result.",
	}, []string{"op", "result"})

	hierarchyPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hierarchy",
		Subsystem: "store",
		Name:      "positions",
		Help:      "Number of positions currently held by the hierarchy store.",
	})

	hierarchyProjectionRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hierarchy",
		Subsystem: "projection",
		Name:      "rows",
		Help:      "Number of rows returned per visible projection.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
)

func mutationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case position.IsNotFound(err):
		return "not_found"
	case position.IsCycle(err):
		return "cycle"
	case position.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}

func recordMutation(op string, err error) {
	hierarchyMutations.WithLabelValues(op, mutationResult(err)).Inc()
}
