package workload

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/edgeswarm/edgeswarm/pkg/edge"
)

func init() {
	Register("stress", buildStress)
	Register("compute_metrics", buildComputeMetrics)
}

// buildStress is a plain CPU burner: spin for `duration` seconds and report
// the number of iterations completed.
func buildStress(params map[string]any) (edge.Task, error) {
	duration, err := intParam(params, "duration", 1)
	if err != nil {
		return edge.Task{}, err
	}
	if duration <= 0 {
		return edge.Task{}, fmt.Errorf("stress: duration must be positive, got %d", duration)
	}

	return edge.Task{
		Name: "stress",
		Payload: func(ctx context.Context) (any, *float64, error) {
			iterations, _ := spin(ctx, time.Duration(duration)*time.Second)
			return iterations, nil, nil
		},
	}, nil
}

// buildComputeMetrics is the stress burner plus a throughput metric, for
// scenarios that track a numeric value per device over time.
func buildComputeMetrics(params map[string]any) (edge.Task, error) {
	duration, err := intParam(params, "duration", 2)
	if err != nil {
		return edge.Task{}, err
	}
	if duration <= 0 {
		return edge.Task{}, fmt.Errorf("compute_metrics: duration must be positive, got %d", duration)
	}

	return edge.Task{
		Name: "compute_metrics",
		Payload: func(ctx context.Context) (any, *float64, error) {
			operations, elapsed := spin(ctx, time.Duration(duration)*time.Second)
			throughput := float64(operations) / elapsed.Seconds()
			return map[string]any{
				"operations":     operations,
				"duration":       duration,
				"avg_throughput": throughput,
			}, &throughput, nil
		},
	}, nil
}

// spin burns CPU until the deadline or ctx cancellation, whichever comes
// first, and returns the iteration count and the time actually spent.
func spin(ctx context.Context, d time.Duration) (int64, time.Duration) {
	start := time.Now()
	deadline := start.Add(d)
	var iterations int64

	for time.Now().Before(deadline) {
		x := rand.Float64()
		y := rand.Float64()
		_ = x * y
		iterations++

		// Checking ctx every iteration would dominate the loop.
		if iterations%4096 == 0 {
			select {
			case <-ctx.Done():
				return iterations, time.Since(start)
			default:
			}
		}
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	return iterations, elapsed
}
