package session

import "errors"

var (
	// ErrInvalidSessionID indicates an empty or malformed session identifier.
	ErrInvalidSessionID = errors.New("session.invalid_id")

	// ErrStoreUnavailable indicates the flag store backend is unreachable.
	ErrStoreUnavailable = errors.New("session.store_unavailable")
)
