package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisPool(t *testing.T, size int) (*RedisPool, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisPool(client, "pool_test", declarePool(size)), client
}

func TestRedisPoolFIFOAcrossClients(t *testing.T) {
	pool, client := newTestRedisPool(t, 4)
	ctx := context.Background()

	// A second allocator over the same client simulates another worker
	// process sharing the queue.
	other := NewRedisPool(client, "pool_test", declarePool(4))

	want := []string{"device-01", "device-02", "device-03", "device-04"}
	allocators := []*RedisPool{pool, other, pool, other}
	for i, a := range allocators {
		id, err := a.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
		if id.ID != want[i] {
			t.Errorf("acquisition %d: expected %s, got %s", i, want[i], id.ID)
		}
	}
}

func TestRedisPoolExhaustionAndReset(t *testing.T) {
	pool, _ := newTestRedisPool(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := pool.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}

	_, err := pool.Acquire(ctx)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}

	if err := pool.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	id, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("post-reset Acquire failed: %v", err)
	}
	if id.ID != "device-01" {
		t.Errorf("post-reset cycle should restart at the head, got %s", id.ID)
	}
}

func TestRedisPoolAssignsExactlyOnceUnderConcurrency(t *testing.T) {
	const size = 8
	pool, _ := newTestRedisPool(t, size)

	var wg sync.WaitGroup
	results := make(chan Identity, size)
	for i := 0; i < size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := pool.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			results <- id
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for id := range results {
		if seen[id.ID] {
			t.Errorf("identity %s assigned twice", id.ID)
		}
		seen[id.ID] = true
	}
	if len(seen) != size {
		t.Errorf("expected %d distinct identities, got %d", size, len(seen))
	}
}

func TestRedisPoolRoundTripsRequirementFields(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	declared := []Identity{{
		ID:           "edge-device-1",
		Flavour:      "high-performance",
		Confidential: true,
		Providers:    []string{"provider-a"},
		Geolocation:  &Geolocation{Latitude: 41.65, Longitude: -0.88},
	}}
	pool := NewRedisPool(client, "roundtrip", declared)

	got, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got.Flavour != "high-performance" || !got.Confidential {
		t.Errorf("requirement fields lost in transit: %+v", got)
	}
	if got.Geolocation == nil || got.Geolocation.Latitude != 41.65 {
		t.Errorf("geolocation lost in transit: %+v", got.Geolocation)
	}
}
