// Package workload holds the built-in payload functions scenarios can
// offload, plus a registry for user-supplied ones. Payload algorithms are
// test cargo, not harness logic: they only need to burn a predictable
// amount of CPU and return something measurable.
package workload

import (
	"fmt"
	"sort"
	"sync"

	"github.com/edgeswarm/edgeswarm/pkg/edge"
)

// Builder constructs a runnable task from scenario parameters.
type Builder func(params map[string]any) (edge.Task, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Builder{}
)

// Register makes a workload available to scenarios under the given name.
// Registering the same name twice panics; that is always a wiring bug.
func Register(name string, b Builder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("workload: duplicate registration for %q", name))
	}
	registry[name] = b
}

// Build resolves a registered workload and binds its parameters.
func Build(name string, params map[string]any) (edge.Task, error) {
	registryMu.RLock()
	b, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return edge.Task{}, fmt.Errorf("unknown workload %q (registered: %v)", name, Names())
	}
	return b(params)
}

// Names lists registered workloads in stable order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scenario parameters arrive from YAML or JSON, so numbers may surface as
// int, int64 or float64.
func intParam(params map[string]any, key string, fallback int) (int, error) {
	v, ok := params[key]
	if !ok {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected a number, got %T", key, v)
	}
}
