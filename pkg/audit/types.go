package audit

import (
	"fmt"
	"time"
)

// Result represents the outcome of an audited action
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Event represents a single audit log entry for a credential operation.
type Event struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	Module     string         `json:"module,omitempty"`
	KeyID      int64          `json:"key_id,omitempty"`
	ClientInfo string         `json:"client_info,omitempty"`
	Result     Result         `json:"result"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate checks if the event has all required fields
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
// Used with Log and LogError methods to add the subject, mechanism, etc.
type EventOption func(*Event)

// WithUser sets the account name the event is about.
func WithUser(name string) EventOption {
	return func(e *Event) {
		e.UserID = name
	}
}

// WithModule sets the second-factor mechanism name.
func WithModule(name string) EventOption {
	return func(e *Event) {
		e.Module = name
	}
}

// WithKeyID sets the device/key identifier.
func WithKeyID(id int64) EventOption {
	return func(e *Event) {
		e.KeyID = id
	}
}

// WithClientInfo sets the client address or user agent string.
func WithClientInfo(info string) EventOption {
	return func(e *Event) {
		e.ClientInfo = info
	}
}

// WithMetadata merges additional key-value pairs into the event.
func WithMetadata(md map[string]any) EventOption {
	return func(e *Event) {
		if len(md) == 0 {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]any, len(md))
		}
		for k, v := range md {
			e.Metadata[k] = v
		}
	}
}

// WithResult overrides the event result.
func WithResult(r Result) EventOption {
	return func(e *Event) {
		e.Result = r
	}
}
