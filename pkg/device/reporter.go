package device

// RequestType tags a reporting event with the lifecycle phase it came from.
type RequestType string

const (
	RequestInit    RequestType = "init"
	RequestOffload RequestType = "offload"
)

// Event is the reporting-sink contract consumed by the driving engine:
// one event per start/offload outcome, in addition to the durable record.
type Event struct {
	RequestType    RequestType
	Name           string
	ResponseTimeMS int64
	ResponseLength int
	Err            error
	Context        map[string]any
}

// Reporter receives session events. Implementations must be safe for
// concurrent use by many sessions.
type Reporter interface {
	Report(Event)
}

// NopReporter discards events. Useful default for tests.
type NopReporter struct{}

func (NopReporter) Report(Event) {}
