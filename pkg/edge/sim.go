package edge

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/edgeswarm/edgeswarm/pkg/identity"
)

// SimConfig tunes the simulated platform.
type SimConfig struct {
	// BaseLatency and Jitter shape the synthetic network round trip:
	// each call sleeps BaseLatency plus a random slice of Jitter.
	BaseLatency time.Duration
	Jitter      time.Duration

	// InitFailureRate is the probability that Init is rejected.
	InitFailureRate float64

	// CallErrorRate is the probability that a call fails with a transport
	// error before the payload runs.
	CallErrorRate float64

	Seed int64
}

// DefaultSimConfig returns a clean runtime with a small, jittered latency.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		BaseLatency: 20 * time.Millisecond,
		Jitter:      30 * time.Millisecond,
	}
}

// SimRuntime executes payloads in-process behind a synthetic network delay
// and configurable failure injection. It stands in for the real platform
// client, whose wire protocol is out of scope for the harness.
type SimRuntime struct {
	cfg SimConfig

	mu      sync.Mutex
	rng     *rand.Rand
	inited  bool
	stopped bool
	reqs    identity.Identity
}

// NewSimRuntime creates a simulated runtime. A zero Seed falls back to the
// wall clock.
func NewSimRuntime(cfg SimConfig) *SimRuntime {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimRuntime{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (r *SimRuntime) Init(ctx context.Context, reqs identity.Identity) (bool, error) {
	if err := r.simulateLatency(ctx, 0); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false, errors.New("runtime already stopped")
	}
	if r.roll() < r.cfg.InitFailureRate {
		return false, nil
	}

	r.reqs = reqs.Clone()
	r.inited = true
	return true, nil
}

func (r *SimRuntime) Call(ctx context.Context, task Task, timeout time.Duration) (*Result, error) {
	r.mu.Lock()
	if !r.inited || r.stopped {
		r.mu.Unlock()
		return nil, errors.New("runtime not initialized")
	}
	failCall := r.roll() < r.cfg.CallErrorRate
	r.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := r.simulateLatency(ctx, timeout); err != nil {
		return nil, fmt.Errorf("call %s: %w", task.Name, err)
	}
	if failCall {
		return nil, fmt.Errorf("call %s: edge node unreachable", task.Name)
	}

	value, metric, err := task.Payload(ctx)
	if err != nil {
		// Remote execution errors come back as a result with a nonzero
		// code, not a transport failure.
		return &Result{Code: 1, ErrMsg: err.Error()}, nil
	}

	return &Result{Code: 0, Value: value, MetricValue: metric}, nil
}

func (r *SimRuntime) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	r.inited = false
	return nil
}

func (r *SimRuntime) simulateLatency(ctx context.Context, timeout time.Duration) error {
	r.mu.Lock()
	delay := r.cfg.BaseLatency
	if r.cfg.Jitter > 0 {
		delay += time.Duration(r.rng.Int63n(int64(r.cfg.Jitter)))
	}
	r.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (r *SimRuntime) roll() float64 {
	return r.rng.Float64()
}
