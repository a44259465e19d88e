package scenario

import (
	"fmt"

	"github.com/prometheus/common/model"

	"github.com/edgeswarm/edgeswarm/pkg/identity"
)

// TaskConfig binds a registered workload and its parameters to a scenario.
type TaskConfig struct {
	Workload string         `json:"workload" yaml:"workload"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Timeout bounds one offload call. Durations are written the human way
	// ("30s", "5m") in both YAML and JSON.
	Timeout model.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Scenario is one class of simulated-device behavior: one workload, one
// identity template, one optional device pool.
type Scenario struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Users is the number of concurrent simulated devices. With a declared
	// pool it must equal the pool size exactly.
	Users int `json:"users" yaml:"users"`

	// Duration bounds the task loop; zero means run until cancelled.
	Duration model.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	// WaitMin/WaitMax bound the pause between consecutive offloads of one
	// user. InitialStaggerMax adds a one-off random delay before the first
	// task so users do not fire in lockstep.
	WaitMin           model.Duration `json:"wait_min,omitempty" yaml:"wait_min,omitempty"`
	WaitMax           model.Duration `json:"wait_max,omitempty" yaml:"wait_max,omitempty"`
	InitialStaggerMax model.Duration `json:"initial_stagger_max,omitempty" yaml:"initial_stagger_max,omitempty"`

	// Endpoint references the runtime endpoint configuration handed to
	// every session.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Template is the base identity. RandomizeID derives per-user IDs from
	// it; a declared Pool overrides both.
	Template    identity.Identity   `json:"template" yaml:"template"`
	RandomizeID bool                `json:"randomize_id,omitempty" yaml:"randomize_id,omitempty"`
	Pool        []identity.Identity `json:"pool,omitempty" yaml:"pool,omitempty"`

	Task TaskConfig `json:"task" yaml:"task"`

	// Seed makes user pacing deterministic; zero falls back to the clock.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Validate checks the structural invariants a run depends on. Pool/user
// count matching is the allocator's job; this catches what would otherwise
// surface as a confusing mid-spawn failure.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if s.Users <= 0 {
		return fmt.Errorf("scenario %s: users must be positive, got %d", s.Name, s.Users)
	}
	if s.Endpoint == "" {
		return fmt.Errorf("scenario %s: endpoint is required", s.Name)
	}
	if s.Template.ID == "" {
		return fmt.Errorf("scenario %s: identity template needs an id", s.Name)
	}
	if s.Task.Workload == "" {
		return fmt.Errorf("scenario %s: task workload is required", s.Name)
	}
	if s.WaitMax < s.WaitMin {
		return fmt.Errorf("scenario %s: wait_max %s is below wait_min %s", s.Name, s.WaitMax, s.WaitMin)
	}
	for i, id := range s.Pool {
		if id.ID == "" {
			return fmt.Errorf("scenario %s: pool entry %d has no id", s.Name, i)
		}
	}
	return nil
}
