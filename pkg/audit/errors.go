package audit

import "errors"

var (
	// ErrEventValidation indicates a required event field is missing.
	ErrEventValidation = errors.New("audit event validation failed")

	// ErrEventNotFound indicates the requested event does not exist.
	ErrEventNotFound = errors.New("audit event not found")
)
