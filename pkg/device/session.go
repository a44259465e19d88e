package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/edgeswarm/edgeswarm/pkg/edge"
	"github.com/edgeswarm/edgeswarm/pkg/identity"
	"github.com/edgeswarm/edgeswarm/pkg/metrics"
)

// State is the session lifecycle position. Transitions are one-way:
// UNSTARTED -> CONNECTED -> STOPPED, with STOPPED terminal.
type State int32

const (
	StateUnstarted State = iota
	StateConnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "UNSTARTED"
	case StateConnected:
		return "CONNECTED"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config describes one simulated user.
type Config struct {
	// Scenario and RunID group this session's records with its siblings.
	Scenario string
	RunID    string

	// Template is the base identity. Required: every session needs at
	// least an identifier to register with.
	Template identity.Identity

	// Endpoint references the runtime endpoint configuration. Required;
	// the session never interprets it, the runtime does.
	Endpoint string

	// RandomizeID derives a unique identifier from the template when no
	// pool is declared.
	RandomizeID bool

	// Pool, when non-nil, assigns this session one identity from the
	// shared pool instead of the template.
	Pool identity.Allocator
}

// Session is one simulated device: one runtime connection, one assigned
// identity, and the offload-and-record protocol around each call.
type Session struct {
	cfg   Config
	ident identity.Identity
	rt    edge.Runtime
	store *metrics.Store
	rep   Reporter

	mu    sync.Mutex
	state State
}

// NewSession resolves the session's working identity and validates its
// configuration. Pool exhaustion and configuration errors abort startup
// before the session exists.
func NewSession(ctx context.Context, cfg Config, rt edge.Runtime, store *metrics.Store, rep Reporter) (*Session, error) {
	if cfg.Template.ID == "" {
		return nil, fmt.Errorf("%w: identity template has no ID", ErrConfiguration)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: runtime endpoint is not set", ErrConfiguration)
	}
	if rt == nil {
		return nil, fmt.Errorf("%w: no device runtime", ErrConfiguration)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: no metrics store", ErrConfiguration)
	}
	if rep == nil {
		rep = NopReporter{}
	}

	var ident identity.Identity
	switch {
	case cfg.Pool != nil:
		assigned, err := cfg.Pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if assigned.ID == "" {
			return nil, fmt.Errorf("%w: pool entry has no ID", ErrConfiguration)
		}
		// The full pool record replaces the working identity entirely.
		ident = assigned
	case cfg.RandomizeID:
		ident = identity.Randomize(cfg.Template)
	default:
		ident = cfg.Template.Clone()
	}

	return &Session{
		cfg:   cfg,
		ident: ident,
		rt:    rt,
		store: store,
		rep:   rep,
	}, nil
}

// Identity returns a copy of the session's working identity.
func (s *Session) Identity() identity.Identity {
	return s.ident.Clone()
}

// State returns the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the runtime connection and registers the device. On failure
// the session stays UNSTARTED and an init failure event is emitted.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUnstarted {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot start session in state %s", state)
	}
	s.mu.Unlock()

	started := time.Now()
	ok, err := s.rt.Init(ctx, s.ident)
	elapsed := time.Since(started).Milliseconds()

	if err != nil || !ok {
		if err == nil {
			err = errors.New("device runtime rejected registration")
		}
		s.rep.Report(Event{
			RequestType:    RequestInit,
			Name:           "device_runtime_init",
			ResponseTimeMS: elapsed,
			Err:            err,
			Context:        s.eventContext(),
		})
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	s.mu.Lock()
	s.state = StateConnected
	s.mu.Unlock()

	s.rep.Report(Event{
		RequestType:    RequestInit,
		Name:           "device_runtime_init",
		ResponseTimeMS: elapsed,
		Context:        s.eventContext(),
	})
	return nil
}

// Offload dispatches one task to the platform, measures its latency, and
// records exactly one execution record for the attempt. It never panics or
// lets a platform failure escape: a non-nil error only reports how the
// attempt was classified, and the session stays usable.
//
// The returned result is the raw runtime answer: nil when the call itself
// failed or returned nothing, the original result otherwise (including
// results classified as failures via their return code).
func (s *Session) Offload(ctx context.Context, task edge.Task, timeout time.Duration) (*edge.Result, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state != StateConnected {
		err := fmt.Errorf("%w: offload %s in state %s", ErrNotConnected, task.Name, state)
		s.rep.Report(Event{
			RequestType: RequestOffload,
			Name:        task.Name,
			Err:         err,
			Context:     s.eventContext(),
		})
		return nil, err
	}

	started := time.Now()
	res, callErr := s.rt.Call(ctx, task, timeout)
	latency := time.Since(started).Milliseconds()

	status := metrics.StatusSuccess
	var errMsg string
	var metricValue *float64
	var classified error

	switch {
	case callErr != nil:
		status = metrics.StatusFailure
		errMsg = callErr.Error()
		classified = callErr
		res = nil
	case res == nil:
		status = metrics.StatusFailure
		errMsg = "no backend available for offload"
		classified = errors.New(errMsg)
	case res.Code != 0:
		status = metrics.StatusFailure
		errMsg = res.ErrMsg
		if errMsg == "" {
			errMsg = "unknown execution error"
		}
		classified = errors.New(errMsg)
	default:
		metricValue = res.MetricValue
	}

	rec := metrics.ExecutionRecord{
		RunID:        s.cfg.RunID,
		Timestamp:    time.Now().UTC(),
		ScenarioName: s.cfg.Scenario,
		DeviceID:     s.ident.ID,
		TaskName:     task.Name,
		Requirements: s.ident,
		Status:       status,
		LatencyMS:    latency,
		MetricValue:  metricValue,
		ErrorMsg:     errMsg,
	}
	if err := s.store.Append(ctx, rec); err != nil {
		log.Printf("device %s: failed to record %s outcome: %v", s.ident.ID, task.Name, err)
	}

	s.rep.Report(Event{
		RequestType:    RequestOffload,
		Name:           task.Name,
		ResponseTimeMS: latency,
		ResponseLength: resultLength(res, status),
		Err:            classified,
		Context:        s.eventContext(),
	})

	return res, classified
}

// Stop closes the runtime connection. Errors during cleanup are logged and
// swallowed; calling Stop twice is a no-op the second time.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return
	}
	wasConnected := s.state == StateConnected
	s.state = StateStopped

	if wasConnected {
		if err := s.rt.Stop(); err != nil {
			log.Printf("warning: device %s runtime cleanup failed: %v", s.ident.ID, err)
		}
	}
}

func (s *Session) eventContext() map[string]any {
	return map[string]any{
		"scenario":  s.cfg.Scenario,
		"device_id": s.ident.ID,
		"run_id":    s.cfg.RunID,
	}
}

// resultLength approximates the size of the response for reporting,
// mirroring what a length-of-serialized-result proxy gives the sink.
func resultLength(res *edge.Result, status metrics.Status) int {
	if res == nil || status == metrics.StatusFailure {
		return 0
	}
	if res.Value == nil {
		return 0
	}
	return len(fmt.Sprint(res.Value))
}
