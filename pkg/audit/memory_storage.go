package audit

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory Storage implementation.
// Suitable for tests and for deployments where audit entries are shipped
// through the structured log stream instead of a database.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStorage creates an empty in-memory audit storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStorage) List(ctx context.Context, filter Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0, len(s.events))
	// Newest first
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Module != "" && e.Module != filter.Module {
			continue
		}
		if filter.Since != nil && !e.CreatedAt.After(*filter.Since) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}

	return out, nil
}
