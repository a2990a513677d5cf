package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript implements the same token bucket math as MemoryStore,
// executed atomically server-side. Buckets expire on their own once idle,
// so no cleanup goroutine is needed.
//
// KEYS[1] bucket key
// ARGV: capacity, refill rate, refill interval (ms), tokens requested,
// now (ms), key TTL (ms)
var consumeScript = redis.NewScript(`
local state = redis.call('HMGET', KEYS[1], 'tokens', 'refilled')
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local tokens = tonumber(state[1])
local refilled = tonumber(state[2])
if tokens == nil then
	tokens = capacity
	refilled = now
end

local max_intervals = math.floor(capacity / rate) + 1
local elapsed = math.floor((now - refilled) / interval)
if elapsed > max_intervals then
	elapsed = max_intervals
end
if elapsed > 0 then
	tokens = math.min(tokens + elapsed * rate, capacity)
	refilled = now
end

tokens = tokens - requested

redis.call('HSET', KEYS[1], 'tokens', tokens, 'refilled', refilled)
redis.call('PEXPIRE', KEYS[1], ARGV[6])

return {tokens, refilled + interval}
`)

// RedisStore implements Store on Redis, letting multiple processes share one
// rate limit state.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix sets the namespace prepended to every bucket key.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		rs.keyPrefix = prefix
	}
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	rs := &RedisStore{
		client:    client,
		keyPrefix: "ratelimit:",
	}

	for _, opt := range opts {
		opt(rs)
	}

	return rs
}

// ConsumeTokens attempts to consume tokens from the bucket.
func (rs *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	// Keep idle buckets around long enough to refill fully, then let Redis
	// reclaim them.
	ttl := time.Duration(config.Capacity/config.RefillRate+1) * config.RefillInterval
	if ttl < time.Minute {
		ttl = time.Minute
	}

	res, err := consumeScript.Run(ctx, rs.client, []string{rs.keyPrefix + key},
		config.Capacity,
		config.RefillRate,
		config.RefillInterval.Milliseconds(),
		tokens,
		time.Now().UnixMilli(),
		ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, time.Time{}, errors.Join(ErrContextCancelled, err)
		}
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, ErrStoreUnavailable
	}

	return int(res[0]), time.UnixMilli(res[1]), nil
}

// Reset clears the rate limit state for the given key.
func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.keyPrefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
