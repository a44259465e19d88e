package edge

import (
	"context"
	"time"

	"github.com/edgeswarm/edgeswarm/pkg/identity"
)

// Payload is the function shipped to the platform for remote execution.
// It returns the raw result value and an optional numeric metric extracted
// from the run. The harness core never inspects payloads; the runtime
// decides how to execute them.
type Payload func(ctx context.Context) (value any, metric *float64, err error)

// Task is one offloadable unit of work: a named workload plus its payload.
type Task struct {
	Name    string
	Payload Payload
}

// Result is the runtime's answer to one offload call. Code follows the
// platform convention: zero means the remote execution succeeded, anything
// else carries ErrMsg (or is classified as an unknown execution error).
type Result struct {
	Code        int      `json:"code"`
	Value       any      `json:"value,omitempty"`
	ErrMsg      string   `json:"err_msg,omitempty"`
	MetricValue *float64 `json:"metric_value,omitempty"`
}

// Runtime is the device-side client of the edge platform. Implementations
// are owned by exactly one session and need not be safe for concurrent use.
type Runtime interface {
	// Init registers the device with the platform using its requirement
	// fields. A false return without an error means the platform rejected
	// the registration.
	Init(ctx context.Context, reqs identity.Identity) (bool, error)

	// Call offloads a task and waits for its result. A zero timeout means
	// no deadline beyond ctx. Timeout enforcement belongs to the runtime;
	// the session only classifies whatever outcome results.
	Call(ctx context.Context, task Task, timeout time.Duration) (*Result, error)

	// Stop releases the device's platform connection.
	Stop() error
}
