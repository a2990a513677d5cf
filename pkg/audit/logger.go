package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logger records audit events for credential operations.
type Logger interface {
	// Log records a successful action.
	Log(ctx context.Context, action string, opts ...EventOption) error

	// LogError records a failed action.
	LogError(ctx context.Context, action string, err error, opts ...EventOption) error
}

// contextExtractor extracts string values from context.
// It returns (value, found) where found indicates if extraction succeeded.
type contextExtractor func(context.Context) (string, bool)

type logger struct {
	storage             Storage
	userExtractor       contextExtractor
	clientInfoExtractor contextExtractor
}

// Option configures the audit logger.
type Option func(*logger)

// WithUserExtractor registers a function that resolves the acting account
// name from context when an event does not set it explicitly.
func WithUserExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *logger) {
		l.userExtractor = fn
	}
}

// WithClientInfoExtractor registers a function that resolves client
// information (IP, user agent) from context.
func WithClientInfoExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *logger) {
		l.clientInfoExtractor = fn
	}
}

// NewLogger creates a new audit logger backed by the given storage.
func NewLogger(storage Storage, opts ...Option) Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &logger{
		storage: storage,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Log records a successful action
func (l *logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	event := l.eventFromContext(ctx)
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now()
	event.Action = action
	event.Result = ResultSuccess

	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}

	return l.storage.Store(ctx, event)
}

// LogError records a failed action
func (l *logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	event := l.eventFromContext(ctx)
	event.ID = uuid.New().String()
	event.Action = action
	event.Result = ResultError
	event.Error = err.Error()
	event.CreatedAt = time.Now()

	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}

	return l.storage.Store(ctx, event)
}

// eventFromContext extracts event data from context
func (l *logger) eventFromContext(ctx context.Context) Event {
	event := Event{}

	if l.userExtractor != nil {
		if user, ok := l.userExtractor(ctx); ok {
			event.UserID = user
		}
	}

	if l.clientInfoExtractor != nil {
		if info, ok := l.clientInfoExtractor(ctx); ok {
			event.ClientInfo = info
		}
	}

	return event
}
