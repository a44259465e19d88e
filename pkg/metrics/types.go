package metrics

import "time"

// Status classifies the outcome of one offload attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// ExecutionRecord is one immutable fact about a completed (or failed)
// offload attempt. Records are appended once and never updated or deleted.
type ExecutionRecord struct {
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	ScenarioName string    `json:"scenario_name"`
	DeviceID     string    `json:"device_id"`
	TaskName     string    `json:"task_name"`

	// Requirements is the request payload serialized into the record.
	// Serialization failures degrade to an empty payload; the record
	// itself is never dropped.
	Requirements any `json:"requirements,omitempty"`

	Status      Status   `json:"status"`
	LatencyMS   int64    `json:"latency_ms"`
	MetricValue *float64 `json:"metric_value,omitempty"`
	ErrorMsg    string   `json:"error_msg,omitempty"`
}
