package authflow

import "errors"

var (
	// ErrNoPendingChallenge is returned when Continue is called without the
	// module recorded by a prior Begin in the same login attempt.
	ErrNoPendingChallenge = errors.New("no second-factor challenge is pending")

	// ErrMissingSessionID is returned when Continue cannot record a Pass
	// because no session identifier was provided.
	ErrMissingSessionID = errors.New("session ID is required")
)
