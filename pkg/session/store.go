package session

import "context"

// Store persists one boolean per login session: whether the second factor
// was satisfied. The flag is the only session state the authentication flow
// touches; everything else about the session belongs to the caller.
type Store interface {
	// SetSecondFactorPassed records whether the session satisfied the
	// second factor.
	SetSecondFactorPassed(ctx context.Context, sessionID string, passed bool) error

	// SecondFactorPassed reports the flag for the session. Unknown sessions
	// read as false, not as an error.
	SecondFactorPassed(ctx context.Context, sessionID string) (bool, error)
}
