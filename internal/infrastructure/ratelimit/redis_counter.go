package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "recipes:ratelimit:"

// incrScript increments the window counter and starts its expiry on the
// first hit, returning the count and the remaining TTL in milliseconds.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisCounter implements Counter on Redis so that every instance behind a
// load balancer shares the same windows.
type RedisCounter struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// NewRedisCounter connects to Redis and verifies the connection
func NewRedisCounter(ctx context.Context, opts *redis.Options) (*RedisCounter, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCounterWithClient(client, ""), nil
}

// NewRedisCounterWithClient wraps an existing client
func NewRedisCounterWithClient(client redis.UniversalClient, keyPrefix string) *RedisCounter {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisCounter{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Incr implements Counter
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	res, err := incrScript.Run(ctx, c.client, []string{c.keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}

	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return res[0], c.now().Add(ttl), nil
}

// Close closes the Redis client
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

var _ Counter = (*RedisCounter)(nil)
