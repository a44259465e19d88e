package swarm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/edgeswarm/edgeswarm/pkg/device"
	"github.com/edgeswarm/edgeswarm/pkg/edge"
	"github.com/edgeswarm/edgeswarm/pkg/identity"
	"github.com/edgeswarm/edgeswarm/pkg/metrics"
	"github.com/edgeswarm/edgeswarm/pkg/scenario"
	"github.com/edgeswarm/edgeswarm/pkg/workload"
)

// Deps are the injected collaborators of one run. Nothing here is a hidden
// global: the store and runtimes are constructed by the caller and passed
// by handle.
type Deps struct {
	// Store receives every execution record of the run. Required.
	Store *metrics.Store

	// NewRuntime builds the per-session platform client. Required. The
	// seed lets simulated runtimes stay deterministic per user.
	NewRuntime func(seed int64) edge.Runtime

	// Allocator overrides the scenario's in-process pool, e.g. with a
	// Redis-backed one for multi-worker runs. Optional.
	Allocator identity.Allocator

	// Stats, when non-nil, is used instead of a fresh RunStats so a status
	// server can observe the run while it is live. Optional.
	Stats *RunStats
}

// Run drives one scenario execution: validates the pool against the user
// count, spawns the users, waits for the task loops to drain, and resets
// the pool. It blocks until the run completes or ctx is cancelled.
func Run(ctx context.Context, sc *scenario.Scenario, deps Deps) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if deps.Store == nil {
		return nil, errors.New("swarm: no metrics store")
	}
	if deps.NewRuntime == nil {
		return nil, errors.New("swarm: no runtime factory")
	}

	task, err := workload.Build(sc.Task.Workload, sc.Task.Params)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	seed := sc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	allocator := deps.Allocator
	if allocator == nil && len(sc.Pool) > 0 {
		allocator = identity.NewPool(sc.Pool)
	}

	// The exact-match check runs before any session is constructed; a
	// mismatched run must abort loudly instead of starving or idling.
	if allocator != nil {
		if err := allocator.ValidateUserCount(sc.Users); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}

	sessionToken := identity.NewSessionToken()
	runID := identity.RunID(sessionToken, sc.Name)

	stats := deps.Stats
	if stats == nil {
		stats = &RunStats{}
	}
	stats.Begin(sc.Name, runID, sc.Users)
	started := time.Now()

	reporter := &statsReporter{stats: stats, scenario: sc.Name}

	log.Printf("running scenario %s: %d users, run id %s (seed %d)", sc.Name, sc.Users, runID, seed)

	runCtx := ctx
	var cancel context.CancelFunc
	if sc.Duration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(sc.Duration))
		defer cancel()
	}

	var wg sync.WaitGroup
	for i := 0; i < sc.Users; i++ {
		wg.Add(1)
		userSeed := seed + int64(i)
		go func(userSeed int64) {
			defer wg.Done()
			runUser(runCtx, sc, task, runID, userSeed, deps, allocator, reporter)
		}(userSeed)
	}
	wg.Wait()

	// Reset only after the run has fully stopped, once per scenario class.
	if allocator != nil {
		if err := allocator.Reset(context.Background()); err != nil {
			log.Printf("scenario %s: pool reset failed: %v", sc.Name, err)
		}
	}

	written, err := deps.Store.CountByRun(context.Background(), runID)
	if err != nil {
		log.Printf("scenario %s: could not count persisted records: %v", sc.Name, err)
	}

	return &Result{
		Snapshot:       stats.Snapshot(),
		Duration:       time.Since(started),
		RecordsWritten: written,
	}, nil
}

func runUser(ctx context.Context, sc *scenario.Scenario, task edge.Task, runID string, seed int64, deps Deps, allocator identity.Allocator, reporter device.Reporter) {
	rng := rand.New(rand.NewSource(seed))

	cfg := device.Config{
		Scenario:    sc.Name,
		RunID:       runID,
		Template:    sc.Template,
		Endpoint:    sc.Endpoint,
		RandomizeID: sc.RandomizeID,
		Pool:        allocator,
	}

	sess, err := device.NewSession(ctx, cfg, deps.NewRuntime(seed), deps.Store, reporter)
	if err != nil {
		log.Printf("scenario %s: session construction failed: %v", sc.Name, err)
		return
	}

	if err := sess.Start(ctx); err != nil {
		log.Printf("scenario %s: device %s failed to start: %v", sc.Name, sess.Identity().ID, err)
		return
	}
	ActiveSessions.WithLabelValues(sc.Name).Inc()
	defer func() {
		sess.Stop()
		ActiveSessions.WithLabelValues(sc.Name).Dec()
	}()

	// Stagger first tasks so users do not fire in lockstep.
	if sc.InitialStaggerMax > 0 {
		if !sleepCtx(ctx, time.Duration(rng.Int63n(int64(sc.InitialStaggerMax)))) {
			return
		}
	}

	wait := waitFor(time.Duration(sc.WaitMin), time.Duration(sc.WaitMax))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Classified failures are already recorded and reported; the
		// loop keeps going regardless.
		_, _ = sess.Offload(ctx, task, time.Duration(sc.Task.Timeout))

		if !sleepCtx(ctx, wait.Next(rng)) {
			return
		}
	}
}

// sleepCtx sleeps for d or until ctx is done; it reports whether the full
// sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
