package swarm

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// OffloadsTotal counts offload attempts by classified outcome.
	OffloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeswarm_offloads_total",
			Help: "Total offload attempts by scenario and status",
		},
		[]string{"scenario", "status"},
	)

	// OffloadLatency tracks wall-clock offload latency.
	OffloadLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edgeswarm_offload_latency_seconds",
			Help:    "Offload latency from call start to classification",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"scenario"},
	)

	// ActiveSessions tracks sessions currently between start and stop.
	ActiveSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "edgeswarm_active_sessions",
			Help: "Simulated devices currently connected",
		},
		[]string{"scenario"},
	)

	// InitFailuresTotal counts failed device registrations.
	InitFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeswarm_init_failures_total",
			Help: "Total failed device runtime initializations",
		},
		[]string{"scenario"},
	)
)

func init() {
	prometheus.MustRegister(OffloadsTotal)
	prometheus.MustRegister(OffloadLatency)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(InitFailuresTotal)
}
