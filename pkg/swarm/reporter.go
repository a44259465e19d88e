package swarm

import (
	"sync/atomic"
	"time"

	"github.com/edgeswarm/edgeswarm/pkg/device"
)

// statsReporter is the swarm's reporting sink: every session event lands in
// the run's atomic counters, the Prometheus collectors, and the recent ring
// used by the live dashboard.
type statsReporter struct {
	stats    *RunStats
	scenario string
}

var _ device.Reporter = (*statsReporter)(nil)

func (r *statsReporter) Report(e device.Event) {
	entry := OutcomeEntry{
		At:             time.Now(),
		RequestType:    string(e.RequestType),
		Name:           e.Name,
		ResponseTimeMS: e.ResponseTimeMS,
	}
	if e.Err != nil {
		entry.Error = e.Err.Error()
	}
	if id, ok := e.Context["device_id"].(string); ok {
		entry.DeviceID = id
	}
	r.stats.pushRecent(entry)

	switch e.RequestType {
	case device.RequestInit:
		if e.Err != nil {
			atomic.AddUint64(&r.stats.InitFailures, 1)
			InitFailuresTotal.WithLabelValues(r.scenario).Inc()
		}
	case device.RequestOffload:
		atomic.AddUint64(&r.stats.Offloads, 1)
		OffloadLatency.WithLabelValues(r.scenario).
			Observe(float64(e.ResponseTimeMS) / 1000)
		if e.Err != nil {
			atomic.AddUint64(&r.stats.Failed, 1)
			OffloadsTotal.WithLabelValues(r.scenario, "failure").Inc()
		} else {
			atomic.AddUint64(&r.stats.Succeeded, 1)
			OffloadsTotal.WithLabelValues(r.scenario, "success").Inc()
		}
	}
}
