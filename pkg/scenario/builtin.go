package scenario

import (
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/common/model"

	"github.com/edgeswarm/edgeswarm/pkg/identity"
)

const defaultEndpoint = "sim://local"

// Builtin constructs a ready-to-run scenario.
type Builtin func() *Scenario

var builtins = map[string]Builtin{
	"light-load":        LightLoad,
	"heavy-load":        HeavyLoad,
	"device-pool":       func() *Scenario { return DevicePool(10) },
	"energy-efficiency": func() *Scenario { return EnergyEfficiency(10) },
}

// Builtins lists the built-in scenario names in stable order.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a built-in scenario by name.
func Lookup(name string) (*Scenario, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown built-in scenario %q (available: %v)", name, Builtins())
	}
	return b(), nil
}

// LightLoad simulates IoT devices with occasional small computations:
// baseline numbers for an otherwise idle platform.
func LightLoad() *Scenario {
	return &Scenario{
		Name:        "light-load",
		Description: "Low frequency, small computations",
		Users:       5,
		Duration:    model.Duration(time.Minute),
		WaitMin:     model.Duration(3 * time.Second),
		WaitMax:     model.Duration(5 * time.Second),
		Endpoint:    defaultEndpoint,
		Template: identity.Identity{
			ID:        "device-light-01",
			Flavour:   "general",
			Providers: []string{"provider-1"},
			Geolocation: &identity.Geolocation{
				Latitude:  41.3851,
				Longitude: 2.1734,
			},
		},
		Task: TaskConfig{
			Workload: "stress",
			Params:   map[string]any{"duration": 1},
		},
	}
}

// HeavyLoad drives intensive matrix computations with uniquely suffixed
// device IDs, for saturation testing.
func HeavyLoad() *Scenario {
	return &Scenario{
		Name:        "heavy-load",
		Description: "High frequency, intensive matrix computations",
		Users:       10,
		Duration:    model.Duration(2 * time.Minute),
		RandomizeID: true,
		Endpoint:    defaultEndpoint,
		Template: identity.Identity{
			ID:        "device-high-load",
			Flavour:   "general",
			Providers: []string{"provider-1"},
			Geolocation: &identity.Geolocation{
				Latitude:  59.3294,
				Longitude: 18.0687,
			},
		},
		Task: TaskConfig{
			Workload: "matrix_mult",
			Params:   map[string]any{"size": 100, "iterations": 5},
		},
	}
}

// DevicePool assigns each user one fixed device ID from a declared pool so
// metrics for the same devices can be compared across runs. User count must
// equal the pool size.
func DevicePool(size int) *Scenario {
	pool := make([]identity.Identity, 0, size)
	for i := 1; i <= size; i++ {
		flavour := "general"
		if i%2 == 0 {
			flavour = "high-performance"
		}
		pool = append(pool, identity.Identity{
			ID:           fmt.Sprintf("device-pool-%02d", i),
			Flavour:      flavour,
			Confidential: false,
			Providers:    []string{"provider-1"},
			Geolocation: &identity.Geolocation{
				Latitude:  round4(41.3851 + float64(i)*0.01),
				Longitude: 2.1734,
			},
		})
	}

	return &Scenario{
		Name:        "device-pool",
		Description: "Fixed device IDs for historical metrics tracking",
		Users:       size,
		Duration:    model.Duration(time.Minute),
		WaitMin:     model.Duration(2 * time.Second),
		WaitMax:     model.Duration(4 * time.Second),
		Endpoint:    defaultEndpoint,
		Template: identity.Identity{
			ID:        "device-pool-default",
			Flavour:   "general",
			Providers: []string{"provider-1"},
			Geolocation: &identity.Geolocation{
				Latitude:  41.3851,
				Longitude: 2.1734,
			},
		},
		Pool: pool,
		Task: TaskConfig{
			Workload: "compute_metrics",
			Params:   map[string]any{"duration": 2},
		},
	}
}

// EnergyEfficiency runs long sustained CPU stress from a fixed device pool,
// spaced out and staggered, for power-consumption measurements on the edge
// nodes.
func EnergyEfficiency(size int) *Scenario {
	pool := make([]identity.Identity, 0, size)
	for i := 1; i <= size; i++ {
		pool = append(pool, identity.Identity{
			ID:        fmt.Sprintf("energy-test-%03d", i),
			Flavour:   "general",
			Providers: []string{"provider-ice"},
			Geolocation: &identity.Geolocation{
				Latitude:  42.2294,
				Longitude: 12.0687,
			},
		})
	}

	return &Scenario{
		Name:              "energy-efficiency",
		Description:       "Sustained CPU stress from a fixed pool for power measurements",
		Users:             size,
		Duration:          model.Duration(10 * time.Minute),
		WaitMin:           model.Duration(10 * time.Second),
		WaitMax:           model.Duration(20 * time.Second),
		InitialStaggerMax: model.Duration(5 * time.Second),
		Endpoint:          defaultEndpoint,
		Template: identity.Identity{
			ID:        "energy-test-default",
			Flavour:   "general",
			Providers: []string{"provider-ice"},
			Geolocation: &identity.Geolocation{
				Latitude:  42.2294,
				Longitude: 12.0687,
			},
		},
		Pool: pool,
		Task: TaskConfig{
			Workload: "stress",
			Params:   map[string]any{"duration": 5},
			Timeout:  model.Duration(30 * time.Second),
		},
	}
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
