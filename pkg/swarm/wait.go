package swarm

import (
	"math"
	"math/rand"
	"time"
)

// WaitStrategy decides how long a user pauses between consecutive tasks.
// The caller passes its own seeded rng so pacing stays deterministic per
// user.
type WaitStrategy interface {
	Next(rng *rand.Rand) time.Duration
}

// Between waits a uniformly random duration in [Min, Max].
type Between struct {
	Min time.Duration
	Max time.Duration
}

func (b Between) Next(rng *rand.Rand) time.Duration {
	if b.Max <= b.Min {
		return b.Min
	}
	return b.Min + time.Duration(rng.Int63n(int64(b.Max-b.Min)))
}

// Constant waits a fixed duration.
type Constant struct {
	D time.Duration
}

func (c Constant) Next(*rand.Rand) time.Duration {
	return c.D
}

// Poisson draws exponential inter-arrival times for the given mean rate
// (tasks per second).
type Poisson struct {
	Rate float64
}

func (p Poisson) Next(rng *rand.Rand) time.Duration {
	if p.Rate <= 0 {
		return 0
	}
	interval := -math.Log(rng.Float64()) / p.Rate
	return time.Duration(interval * float64(time.Second))
}

// waitFor picks the strategy a scenario's wait window implies.
func waitFor(min, max time.Duration) WaitStrategy {
	if max <= 0 && min <= 0 {
		return Constant{}
	}
	if max <= min {
		return Constant{D: min}
	}
	return Between{Min: min, Max: max}
}
