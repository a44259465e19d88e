package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/common/model"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/edgeswarm/edgeswarm/pkg/edge"
	"github.com/edgeswarm/edgeswarm/pkg/identity"
	"github.com/edgeswarm/edgeswarm/pkg/metrics"
	"github.com/edgeswarm/edgeswarm/pkg/scenario"
	"github.com/edgeswarm/edgeswarm/pkg/swarm"
)

var runFlags struct {
	scenarioFile string
	builtin      string
	users        int
	duration     time.Duration
	dbPath       string
	redisAddr    string
	listenAddr   string
	seed         int64
	jsonOutput   bool
	outputFile   string

	simLatency     time.Duration
	simJitter      time.Duration
	simErrorRate   float64
	simInitFailure float64
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one load-test scenario",
	RunE:  runScenario,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.scenarioFile, "scenario", "", "path to a scenario YAML file")
	f.StringVar(&runFlags.builtin, "builtin", "", "name of a built-in scenario (see 'edgeswarm scenarios')")
	f.IntVar(&runFlags.users, "users", 0, "override the scenario's user count")
	f.DurationVar(&runFlags.duration, "duration", 0, "override the scenario's duration")
	f.StringVar(&runFlags.dbPath, "db", envOrDefault("EDGESWARM_DB_PATH", "edgeswarm.db"), "path to the SQLite metrics database")
	f.StringVar(&runFlags.redisAddr, "redis", os.Getenv("EDGESWARM_REDIS_ADDR"), "redis address for a shared device pool (multi-worker runs)")
	f.StringVar(&runFlags.listenAddr, "listen", os.Getenv("EDGESWARM_LISTEN"), "serve /status and /metrics on this address while running")
	f.Int64Var(&runFlags.seed, "seed", 0, "override the scenario's deterministic seed")
	f.BoolVar(&runFlags.jsonOutput, "json", false, "output the run report as JSON")
	f.StringVar(&runFlags.outputFile, "out", "", "write the report to a file instead of stdout")

	f.DurationVar(&runFlags.simLatency, "sim-latency", 20*time.Millisecond, "simulated runtime base latency")
	f.DurationVar(&runFlags.simJitter, "sim-jitter", 30*time.Millisecond, "simulated runtime latency jitter")
	f.Float64Var(&runFlags.simErrorRate, "sim-error-rate", 0, "simulated runtime call error probability")
	f.Float64Var(&runFlags.simInitFailure, "sim-init-failure-rate", 0, "simulated runtime init rejection probability")
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := resolveScenario()
	if err != nil {
		return err
	}
	if runFlags.users > 0 {
		sc.Users = runFlags.users
	}
	if runFlags.duration > 0 {
		sc.Duration = model.Duration(runFlags.duration)
	}
	if runFlags.seed != 0 {
		sc.Seed = runFlags.seed
	}

	store, err := metrics.NewStore(runFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open metrics store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close metrics store: %v", err)
		}
	}()

	deps := swarm.Deps{
		Store:      store,
		NewRuntime: simRuntimeFactory(),
	}

	if runFlags.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: runFlags.redisAddr})
		defer client.Close()
		deps.Allocator = identity.NewRedisPool(client, sc.Name, sc.Pool)
		log.Printf("using shared device pool via redis at %s", runFlags.redisAddr)
	}

	stats := &swarm.RunStats{}
	deps.Stats = stats
	if runFlags.listenAddr != "" {
		srv := swarm.ServeStatus(runFlags.listenAddr, stats)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Printf("serving /status and /metrics on %s", runFlags.listenAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := swarm.Run(ctx, sc, deps)
	if err != nil {
		return err
	}

	return writeReport(result)
}

func resolveScenario() (*scenario.Scenario, error) {
	switch {
	case runFlags.scenarioFile != "" && runFlags.builtin != "":
		return nil, fmt.Errorf("--scenario and --builtin are mutually exclusive")
	case runFlags.scenarioFile != "":
		return scenario.Load(runFlags.scenarioFile)
	case runFlags.builtin != "":
		return scenario.Lookup(runFlags.builtin)
	default:
		fmt.Fprintln(os.Stderr, "No scenario given, running the built-in light-load demo...")
		sc := scenario.LightLoad()
		sc.Duration = model.Duration(15 * time.Second)
		return sc, nil
	}
}

func simRuntimeFactory() func(seed int64) edge.Runtime {
	return func(seed int64) edge.Runtime {
		return edge.NewSimRuntime(edge.SimConfig{
			BaseLatency:     runFlags.simLatency,
			Jitter:          runFlags.simJitter,
			CallErrorRate:   runFlags.simErrorRate,
			InitFailureRate: runFlags.simInitFailure,
			Seed:            seed,
		})
	}
}

func writeReport(res *swarm.Result) error {
	var output []byte
	var err error

	if runFlags.jsonOutput {
		output, err = json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
	} else {
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "\n--- Run Report: %s (run %s) ---\n", res.ScenarioName, res.RunID)
		fmt.Fprintf(&buf, "Duration: %s | Users: %d\n", res.Duration.Round(time.Millisecond), res.Users)
		fmt.Fprintf(&buf, "Offloads: %d | Succeeded: %d | Failed: %d | Init failures: %d\n",
			res.Offloads, res.Succeeded, res.Failed, res.InitFailures)
		fmt.Fprintf(&buf, "Records written: %d\n", res.RecordsWritten)
		output = buf.Bytes()
	}

	if runFlags.outputFile != "" {
		if err := os.WriteFile(runFlags.outputFile, output, 0o644); err != nil {
			return fmt.Errorf("write report to %s: %w", runFlags.outputFile, err)
		}
		fmt.Printf("Report written to %s\n", runFlags.outputFile)
		return nil
	}

	fmt.Println(string(output))
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
