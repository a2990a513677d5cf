package session

import (
	"context"
	"time"

	"github.com/dmitrymomot/oathkit/pkg/cache"
)

const (
	defaultCapacity = 16384
	defaultTTL      = 12 * time.Hour
)

// MemoryStore keeps session flags in an in-process LRU with TTL expiry, so
// abandoned login sessions age out without a cleanup goroutine.
type MemoryStore struct {
	flags *cache.LRUCache[string, bool]
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	capacity int
	ttl      time.Duration
}

// WithCapacity caps the number of tracked sessions.
func WithCapacity(capacity int) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithTTL sets how long a flag survives without being refreshed.
func WithTTL(ttl time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewMemoryStore creates an in-memory flag store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	cfg := &memoryStoreConfig{
		capacity: defaultCapacity,
		ttl:      defaultTTL,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryStore{
		flags: cache.NewLRUCache[string, bool](cfg.capacity, cache.WithTTL(cfg.ttl)),
	}
}

// SetSecondFactorPassed records the flag for the session.
func (s *MemoryStore) SetSecondFactorPassed(ctx context.Context, sessionID string, passed bool) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}
	s.flags.Put(sessionID, passed)
	return nil
}

// SecondFactorPassed reports the flag; unknown sessions read as false.
func (s *MemoryStore) SecondFactorPassed(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrInvalidSessionID
	}
	passed, ok := s.flags.Get(sessionID)
	return ok && passed, nil
}
