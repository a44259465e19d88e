package swarm

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/common/model"

	"github.com/edgeswarm/edgeswarm/pkg/edge"
	"github.com/edgeswarm/edgeswarm/pkg/identity"
	"github.com/edgeswarm/edgeswarm/pkg/metrics"
	"github.com/edgeswarm/edgeswarm/pkg/scenario"
	"github.com/edgeswarm/edgeswarm/pkg/workload"
)

func init() {
	workload.Register("instant", func(params map[string]any) (edge.Task, error) {
		return edge.Task{
			Name: "instant",
			Payload: func(ctx context.Context) (any, *float64, error) {
				metric := 1.0
				return "ok", &metric, nil
			},
		}, nil
	})
}

func newRunStore(t *testing.T) *metrics.Store {
	t.Helper()
	store, err := metrics.NewStore(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func instantRuntimes() func(seed int64) edge.Runtime {
	return func(seed int64) edge.Runtime {
		return edge.NewSimRuntime(edge.SimConfig{Seed: seed})
	}
}

func quickScenario(users int) *scenario.Scenario {
	return &scenario.Scenario{
		Name:     "quick",
		Users:    users,
		Duration: model.Duration(200 * time.Millisecond),
		WaitMin:  model.Duration(10 * time.Millisecond),
		WaitMax:  model.Duration(20 * time.Millisecond),
		Endpoint: "sim://local",
		Template: identity.Identity{ID: "quick-device", Flavour: "general"},
		Task:     scenario.TaskConfig{Workload: "instant"},
		Seed:     1,
	}
}

func TestRunCompletesAndPersistsEveryOffload(t *testing.T) {
	store := newRunStore(t)
	sc := quickScenario(3)
	sc.RandomizeID = true

	res, err := Run(context.Background(), sc, Deps{
		Store:      store,
		NewRuntime: instantRuntimes(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Offloads == 0 {
		t.Fatal("run produced no offloads")
	}
	if res.Failed != 0 {
		t.Errorf("clean runtime produced %d failures", res.Failed)
	}
	if res.Succeeded != res.Offloads {
		t.Errorf("succeeded %d != offloads %d", res.Succeeded, res.Offloads)
	}
	if uint64(res.RecordsWritten) != res.Offloads {
		t.Errorf("persisted %d records for %d offloads", res.RecordsWritten, res.Offloads)
	}
	if res.RunID == "" || len(res.RunID) != 16 {
		t.Errorf("run ID malformed: %q", res.RunID)
	}

	count, err := store.CountByRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("CountByRun failed: %v", err)
	}
	if count != res.RecordsWritten {
		t.Errorf("store count %d != reported %d", count, res.RecordsWritten)
	}
}

func TestRunAssignsPoolIdentitiesExactlyOnce(t *testing.T) {
	store := newRunStore(t)

	const users = 4
	sc := quickScenario(users)
	sc.Name = "quick-pool"
	for i := 1; i <= users; i++ {
		sc.Pool = append(sc.Pool, identity.Identity{ID: fmt.Sprintf("pool-device-%02d", i)})
	}

	res, err := Run(context.Background(), sc, Deps{
		Store:      store,
		NewRuntime: instantRuntimes(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Offloads == 0 {
		t.Fatal("run produced no offloads")
	}

	records, err := store.RecordsByScenario(context.Background(), "quick-pool", 10000)
	if err != nil {
		t.Fatalf("RecordsByScenario failed: %v", err)
	}

	devices := make(map[string]bool)
	for _, rec := range records {
		if !strings.HasPrefix(rec.DeviceID, "pool-device-") {
			t.Fatalf("record from non-pool device %q", rec.DeviceID)
		}
		devices[rec.DeviceID] = true
	}
	if len(devices) != users {
		t.Errorf("expected records from %d pool devices, got %d", users, len(devices))
	}
}

func TestRunAbortsOnPoolUserMismatch(t *testing.T) {
	store := newRunStore(t)

	sc := quickScenario(3)
	sc.Pool = []identity.Identity{{ID: "only-device"}}

	_, err := Run(context.Background(), sc, Deps{
		Store:      store,
		NewRuntime: instantRuntimes(),
	})
	if err == nil {
		t.Fatal("mismatched pool must abort the run")
	}

	// The abort happens before any session exists, so nothing is recorded.
	records, qerr := store.RecordsByScenario(context.Background(), "quick", 10)
	if qerr != nil {
		t.Fatalf("RecordsByScenario failed: %v", qerr)
	}
	if len(records) != 0 {
		t.Errorf("aborted run left %d records", len(records))
	}
}

func TestRunValidatesDependencies(t *testing.T) {
	store := newRunStore(t)
	sc := quickScenario(1)

	if _, err := Run(context.Background(), sc, Deps{NewRuntime: instantRuntimes()}); err == nil {
		t.Error("missing store must fail")
	}
	if _, err := Run(context.Background(), sc, Deps{Store: store}); err == nil {
		t.Error("missing runtime factory must fail")
	}

	bad := quickScenario(1)
	bad.Task.Workload = "no_such_workload"
	if _, err := Run(context.Background(), bad, Deps{Store: store, NewRuntime: instantRuntimes()}); err == nil {
		t.Error("unknown workload must fail")
	}

	invalid := quickScenario(0)
	if _, err := Run(context.Background(), invalid, Deps{Store: store, NewRuntime: instantRuntimes()}); err == nil {
		t.Error("invalid scenario must fail")
	}
}

func TestRunResetsPoolForNextRun(t *testing.T) {
	store := newRunStore(t)

	sc := quickScenario(2)
	sc.Name = "quick-reset"
	sc.Pool = []identity.Identity{{ID: "reset-device-01"}, {ID: "reset-device-02"}}
	allocator := identity.NewPool(sc.Pool)

	deps := Deps{Store: store, NewRuntime: instantRuntimes(), Allocator: allocator}

	if _, err := Run(context.Background(), sc, deps); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// A drained pool would starve the second run's sessions; after reset
	// both users acquire again.
	res, err := Run(context.Background(), sc, deps)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if res.Offloads == 0 {
		t.Error("second run got no offloads; pool was not reset")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newRunStore(t)

	sc := quickScenario(2)
	sc.Duration = 0 // unbounded; only ctx stops it

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := Run(ctx, sc, Deps{Store: store, NewRuntime: instantRuntimes()}); err != nil {
			t.Errorf("Run failed: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after ctx cancellation")
	}
}

func TestRunCountsFailures(t *testing.T) {
	store := newRunStore(t)

	sc := quickScenario(2)
	sc.Name = "quick-failures"

	res, err := Run(context.Background(), sc, Deps{
		Store: store,
		NewRuntime: func(seed int64) edge.Runtime {
			return edge.NewSimRuntime(edge.SimConfig{CallErrorRate: 1.0, Seed: seed})
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Offloads == 0 {
		t.Fatal("run produced no offloads")
	}
	if res.Failed != res.Offloads {
		t.Errorf("all calls fail, but failed %d != offloads %d", res.Failed, res.Offloads)
	}
	if uint64(res.RecordsWritten) != res.Offloads {
		t.Errorf("failures must still be recorded: %d records for %d offloads", res.RecordsWritten, res.Offloads)
	}
}
