package swarm

import (
	"math/rand"
	"testing"
	"time"
)

func TestBetweenStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b := Between{Min: time.Second, Max: 3 * time.Second}

	for i := 0; i < 1000; i++ {
		d := b.Next(rng)
		if d < b.Min || d > b.Max {
			t.Fatalf("draw %d out of bounds: %s", i, d)
		}
	}
}

func TestBetweenDegenerateWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b := Between{Min: 2 * time.Second, Max: 2 * time.Second}
	if d := b.Next(rng); d != 2*time.Second {
		t.Errorf("collapsed window should always yield Min, got %s", d)
	}
}

func TestConstant(t *testing.T) {
	c := Constant{D: 500 * time.Millisecond}
	if d := c.Next(nil); d != 500*time.Millisecond {
		t.Errorf("got %s", d)
	}
}

func TestPoissonMeanRoughlyMatchesRate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := Poisson{Rate: 10} // mean interval 100ms

	var total time.Duration
	const draws = 10000
	for i := 0; i < draws; i++ {
		d := p.Next(rng)
		if d < 0 {
			t.Fatalf("negative interval: %s", d)
		}
		total += d
	}

	mean := total / draws
	if mean < 80*time.Millisecond || mean > 120*time.Millisecond {
		t.Errorf("mean interval %s too far from 100ms", mean)
	}
}

func TestPoissonZeroRate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	if d := (Poisson{}).Next(rng); d != 0 {
		t.Errorf("zero rate should not wait, got %s", d)
	}
}

func TestWaitForStrategySelection(t *testing.T) {
	if _, ok := waitFor(0, 0).(Constant); !ok {
		t.Error("no window should select Constant")
	}
	if s, ok := waitFor(time.Second, time.Second).(Constant); !ok || s.D != time.Second {
		t.Errorf("collapsed window should select Constant{1s}, got %#v", s)
	}
	if _, ok := waitFor(time.Second, 2*time.Second).(Between); !ok {
		t.Error("open window should select Between")
	}
}
