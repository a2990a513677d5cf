package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session flags in Redis so every process behind a load
// balancer sees the same second-factor state.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix sets the namespace prepended to every session key.
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

// WithRedisTTL sets how long a flag survives without being refreshed.
func WithRedisTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore creates a Redis-backed flag store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: "2fa:session:",
		ttl:       defaultTTL,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetSecondFactorPassed records the flag for the session.
func (s *RedisStore) SetSecondFactorPassed(ctx context.Context, sessionID string, passed bool) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	key := s.keyPrefix + sessionID
	if !passed {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return errors.Join(ErrStoreUnavailable, err)
		}
		return nil
	}

	if err := s.client.Set(ctx, key, "1", s.ttl).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// SecondFactorPassed reports the flag; unknown sessions read as false.
func (s *RedisStore) SecondFactorPassed(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrInvalidSessionID
	}

	val, err := s.client.Get(ctx, s.keyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	return val == "1", nil
}
