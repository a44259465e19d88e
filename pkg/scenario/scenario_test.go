package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeswarm/edgeswarm/pkg/identity"
)

const sampleYAML = `
name: pool-run
description: Fixed pool smoke run
users: 2
duration: 30s
wait_min: 1s
wait_max: 2s
endpoint: sim://local
template:
  id: edge-device
  flavour: general
pool:
  - id: edge-device-01
    flavour: general
    providers: [provider-1]
    geolocation:
      latitude: 41.65
      longitude: -0.88
  - id: edge-device-02
    flavour: high-performance
task:
  workload: compute_metrics
  params:
    duration: 2
  timeout: 30s
seed: 42
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenarioFromYAML(t *testing.T) {
	sc, err := Load(writeScenario(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "pool-run", sc.Name)
	assert.Equal(t, 2, sc.Users)
	assert.Equal(t, model.Duration(30*time.Second), sc.Duration)
	assert.Equal(t, model.Duration(time.Second), sc.WaitMin)
	assert.Equal(t, "compute_metrics", sc.Task.Workload)
	assert.Equal(t, model.Duration(30*time.Second), sc.Task.Timeout)
	assert.Equal(t, int64(42), sc.Seed)

	require.Len(t, sc.Pool, 2)
	assert.Equal(t, "edge-device-01", sc.Pool[0].ID)
	require.NotNil(t, sc.Pool[0].Geolocation)
	assert.InDelta(t, 41.65, sc.Pool[0].Geolocation.Latitude, 1e-9)
	assert.Equal(t, "high-performance", sc.Pool[1].Flavour)
}

func TestLoadRejectsInvalidScenario(t *testing.T) {
	_, err := Load(writeScenario(t, "name: broken\nusers: 0\n"))
	require.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeScenario(t, "name: [unclosed"))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:     "ok",
			Users:    3,
			Endpoint: "sim://local",
			Template: identityTemplate(),
			WaitMin:  model.Duration(time.Second),
			WaitMax:  model.Duration(2 * time.Second),
			Task:     TaskConfig{Workload: "stress"},
		}
	}

	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"empty name", func(s *Scenario) { s.Name = "" }},
		{"zero users", func(s *Scenario) { s.Users = 0 }},
		{"negative users", func(s *Scenario) { s.Users = -1 }},
		{"missing endpoint", func(s *Scenario) { s.Endpoint = "" }},
		{"template without id", func(s *Scenario) { s.Template.ID = "" }},
		{"missing workload", func(s *Scenario) { s.Task.Workload = "" }},
		{"wait_max below wait_min", func(s *Scenario) { s.WaitMax = s.WaitMin / 2 }},
		{"pool entry without id", func(s *Scenario) { s.Pool = append(s.Pool, identityTemplate(), blankIdentity()) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := valid()
			tc.mutate(sc)
			assert.Error(t, sc.Validate())
		})
	}
}

func TestBuiltinsAllValidate(t *testing.T) {
	names := Builtins()
	require.NotEmpty(t, names)

	for _, name := range names {
		sc, err := Lookup(name)
		require.NoError(t, err, name)
		assert.NoError(t, sc.Validate(), name)
		if len(sc.Pool) > 0 {
			assert.Equal(t, len(sc.Pool), sc.Users,
				"%s: pool scenarios must declare one identity per user", name)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("does-not-exist")
	require.Error(t, err)
}

func identityTemplate() identity.Identity {
	return identity.Identity{ID: "edge-device", Flavour: "general"}
}

func blankIdentity() identity.Identity {
	return identity.Identity{}
}
