package oath

import "errors"

var (
	// ErrModuleNotConfigured is returned when a mechanism name is not part of
	// the registry's configured module set.
	ErrModuleNotConfigured = errors.New("second-factor module is not configured")

	// ErrTypeNotFound is returned when a stored type ID cannot be translated
	// back to a configured mechanism name.
	ErrTypeNotFound = errors.New("second-factor type is not known")

	// ErrNoCentralID is returned when a credential operation requires a stable
	// account identity and the account has none.
	ErrNoCentralID = errors.New("user has no central ID")

	// ErrMechanismConflict is returned when a credential of a second, different
	// mechanism is created while another mechanism is already enabled.
	ErrMechanismConflict = errors.New("another second-factor mechanism is already enabled")

	// ErrKeyNotPersisted is returned when an update or delete targets a
	// credential that has not been stored yet.
	ErrKeyNotPersisted = errors.New("credential has not been persisted")

	// ErrDeviceNotFound is returned when a storage operation targets a
	// credential row that does not exist.
	ErrDeviceNotFound = errors.New("credential not found in storage")

	// ErrConcurrentUpdate is returned by conditional writes when the stored
	// payload changed since it was read.
	ErrConcurrentUpdate = errors.New("credential was modified concurrently")

	// ErrInvalidKeyPayload is returned when a stored payload cannot be
	// deserialized by its module.
	ErrInvalidKeyPayload = errors.New("invalid credential payload")

	// ErrFailedToStoreKey is returned when persisting a credential fails.
	ErrFailedToStoreKey = errors.New("failed to store credential")

	// ErrFailedToLoadKeys is returned when loading a user's credentials fails.
	ErrFailedToLoadKeys = errors.New("failed to load credentials")
)
