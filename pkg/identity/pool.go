package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrPoolExhausted is returned by Acquire when every declared identity
	// has already been handed out in the current pool lifetime.
	ErrPoolExhausted = errors.New("identity pool exhausted")

	// ErrUserCountMismatch is returned by ValidateUserCount when the number
	// of concurrent users differs from the declared pool size.
	ErrUserCountMismatch = errors.New("user count does not match identity pool size")
)

// Allocator hands out device identities to sessions. Implementations must
// guarantee that between resets each declared identity is acquired at most
// once, in declaration order.
type Allocator interface {
	// Acquire removes and returns the next available identity.
	Acquire(ctx context.Context) (Identity, error)

	// Reset returns the allocator to its not-yet-materialized state so the
	// next Acquire starts a fresh cycle through the full declared pool.
	Reset(ctx context.Context) error

	// Size reports the number of declared identities.
	Size() int

	// ValidateUserCount fails when the number of concurrent users does not
	// exactly match the declared pool size.
	ValidateUserCount(users int) error
}

// Pool is an in-process identity allocator backed by a declared, ordered
// list. The available queue is materialized lazily on first Acquire and
// drained FIFO, so assignment order equals declaration order.
type Pool struct {
	mu           sync.Mutex
	declared     []Identity
	available    []Identity
	materialized bool
}

// NewPool declares a fixed pool. The declared list is copied; callers may
// reuse or mutate their slice afterwards.
func NewPool(declared []Identity) *Pool {
	p := &Pool{declared: make([]Identity, len(declared))}
	for i, id := range declared {
		p.declared[i] = id.Clone()
	}
	return p
}

func (p *Pool) Size() int {
	return len(p.declared)
}

// ValidateUserCount enforces the exact-match contract between users and
// declared identities. An undersubscribed run would leave idle devices,
// an oversubscribed one would starve sessions mid-spawn.
func (p *Pool) ValidateUserCount(users int) error {
	if users != len(p.declared) {
		return fmt.Errorf("%w: %d users, %d declared devices: pool runs require exactly one user per device", ErrUserCountMismatch, users, len(p.declared))
	}
	return nil
}

// Acquire pops the head of the available queue. Concurrent callers never
// observe the same element twice and the queue never underflows.
func (p *Pool) Acquire(ctx context.Context) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.materialized {
		p.available = make([]Identity, len(p.declared))
		for i, id := range p.declared {
			p.available[i] = id.Clone()
		}
		p.materialized = true
	}

	if len(p.available) == 0 {
		return Identity{}, fmt.Errorf("pool of %d devices: %w", len(p.declared), ErrPoolExhausted)
	}

	head := p.available[0]
	p.available = p.available[1:]
	return head, nil
}

// Reset discards the available queue entirely. Invoked once per scenario
// class after a run fully stops.
func (p *Pool) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = nil
	p.materialized = false
	return nil
}
