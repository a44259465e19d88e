package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// primeScript materializes the shared queue exactly once across workers.
// Scripts run atomically, so either one worker pushes the whole declared
// list or none does; acquirers can never observe a half-primed queue.
var primeScript = redis.NewScript(`
if redis.call("SETNX", KEYS[1], "1") == 1 then
	for i = 1, #ARGV do
		redis.call("RPUSH", KEYS[2], ARGV[i])
	end
	return 1
end
return 0
`)

// RedisPool is a distributed identity allocator for runs spread across
// multiple worker processes. It keeps the same contract as Pool: FIFO
// order, exactly-once assignment between resets, exhaustion error on
// underflow.
type RedisPool struct {
	client   *redis.Client
	declared []Identity
	listKey  string
	primeKey string
}

// NewRedisPool declares a shared pool for a scenario class. All workers of
// one run must declare the same list in the same order.
func NewRedisPool(client *redis.Client, scenarioName string, declared []Identity) *RedisPool {
	p := &RedisPool{
		client:   client,
		declared: make([]Identity, len(declared)),
		listKey:  fmt.Sprintf("edgeswarm:pool:%s", scenarioName),
		primeKey: fmt.Sprintf("edgeswarm:pool:%s:primed", scenarioName),
	}
	for i, id := range declared {
		p.declared[i] = id.Clone()
	}
	return p
}

func (p *RedisPool) Size() int {
	return len(p.declared)
}

func (p *RedisPool) ValidateUserCount(users int) error {
	if users != len(p.declared) {
		return fmt.Errorf("%w: %d users, %d declared devices: pool runs require exactly one user per device", ErrUserCountMismatch, users, len(p.declared))
	}
	return nil
}

func (p *RedisPool) Acquire(ctx context.Context) (Identity, error) {
	args := make([]interface{}, 0, len(p.declared))
	for _, id := range p.declared {
		data, err := json.Marshal(id)
		if err != nil {
			return Identity{}, fmt.Errorf("marshal pool identity %q: %w", id.ID, err)
		}
		args = append(args, string(data))
	}

	if err := primeScript.Run(ctx, p.client, []string{p.primeKey, p.listKey}, args...).Err(); err != nil {
		return Identity{}, fmt.Errorf("prime shared pool: %w", err)
	}

	data, err := p.client.LPop(ctx, p.listKey).Result()
	if err == redis.Nil {
		return Identity{}, fmt.Errorf("shared pool of %d devices: %w", len(p.declared), ErrPoolExhausted)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("acquire from shared pool: %w", err)
	}

	var id Identity
	if err := json.Unmarshal([]byte(data), &id); err != nil {
		return Identity{}, fmt.Errorf("unmarshal pool identity: %w", err)
	}
	return id, nil
}

func (p *RedisPool) Reset(ctx context.Context) error {
	if err := p.client.Del(ctx, p.listKey, p.primeKey).Err(); err != nil {
		return fmt.Errorf("reset shared pool: %w", err)
	}
	return nil
}
