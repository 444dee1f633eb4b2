// Package prometheus provides Prometheus implementations of the metrics
// interfaces of the actor runtime and the NATS bridge.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// AllMetrics holds the Prometheus implementations for a whole agent.
type AllMetrics struct {
	Runtime *runtimeMetrics
	Bridge  *bridgeMetrics
}

// NewAllMetrics registers runtime and bridge metrics on reg.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Runtime: NewRuntimeMetrics(reg).(*runtimeMetrics),
		Bridge:  NewBridgeMetrics(reg).(*bridgeMetrics),
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
