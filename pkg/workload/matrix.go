package workload

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/edgeswarm/edgeswarm/pkg/edge"
)

func init() {
	Register("matrix_mult", buildMatrixMult)
}

// buildMatrixMult multiplies random size x size matrices for a number of
// iterations and reports the sum of all result elements. Heavier per call
// than stress, useful for saturating edge nodes.
func buildMatrixMult(params map[string]any) (edge.Task, error) {
	size, err := intParam(params, "size", 100)
	if err != nil {
		return edge.Task{}, err
	}
	iterations, err := intParam(params, "iterations", 1)
	if err != nil {
		return edge.Task{}, err
	}
	if size <= 0 || iterations <= 0 {
		return edge.Task{}, fmt.Errorf("matrix_mult: size and iterations must be positive, got %d and %d", size, iterations)
	}

	return edge.Task{
		Name: "matrix_mult",
		Payload: func(ctx context.Context) (any, *float64, error) {
			var total float64
			for i := 0; i < iterations; i++ {
				select {
				case <-ctx.Done():
					return total, nil, ctx.Err()
				default:
				}
				total += multiplyOnce(size)
			}
			return total, nil, nil
		},
	}, nil
}

func multiplyOnce(size int) float64 {
	a := randomMatrix(size)
	b := randomMatrix(size)
	var sum float64
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			var cell float64
			for k := 0; k < size; k++ {
				cell += a[i][k] * b[k][j]
			}
			sum += cell
		}
	}
	return sum
}

func randomMatrix(size int) [][]float64 {
	m := make([][]float64, size)
	for i := range m {
		row := make([]float64, size)
		for j := range row {
			row[j] = rand.Float64()
		}
		m[i] = row
	}
	return m
}
