package notify

import (
	"time"
)

// Kind identifies what happened to the user's second factor.
type Kind string

const (
	// KindEnabled is sent when the first credential is added to an account.
	KindEnabled Kind = "2fa_enabled"

	// KindDisabled is sent when credentials are removed from an account.
	KindDisabled Kind = "2fa_disabled"
)

// Notification is one enable/disable event destined for the account owner.
type Notification struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Kind   Kind   `json:"kind"`

	// SelfInitiated distinguishes "you disabled your second factor" from
	// "an administrator disabled your second factor" in user-facing messaging.
	SelfInitiated bool `json:"self_initiated"`

	CreatedAt time.Time `json:"created_at"`
}
