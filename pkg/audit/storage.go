package audit

import (
	"context"
	"time"
)

// Storage handles audit event persistence and retrieval.
type Storage interface {
	// Store persists a single audit event.
	Store(ctx context.Context, event Event) error

	// List returns events matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Filter narrows event listings.
type Filter struct {
	UserID string     // If set, only events for this account
	Action string     // If set, only events with this action
	Module string     // If set, only events for this mechanism
	Since  *time.Time // If set, only events created after this time
	Limit  int        // Maximum number of events to return (0 = no limit)
}
