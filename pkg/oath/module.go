package oath

import "context"

// VerifyResult is the outcome of checking a submitted token against a
// credential.
type VerifyResult struct {
	// OK reports whether the token was accepted.
	OK bool

	// KeyDirty reports whether verification mutated the credential payload
	// (a scratch token was consumed). The caller must re-persist the
	// credential via Repository.UpdateKey when set.
	KeyDirty bool
}

// Key is one second-factor credential owned by a user.
//
// A Key with ID zero exists only in memory. The repository assigns the ID
// when the credential is persisted.
type Key interface {
	// ID returns the storage-assigned identifier, or zero if not persisted.
	ID() int64

	// Module returns the mechanism name this credential belongs to.
	Module() string

	// Verify checks a submitted token against the credential.
	Verify(ctx context.Context, token string) (VerifyResult, error)

	// MarshalPayload serializes the mechanism-specific payload for storage.
	MarshalPayload() ([]byte, error)
}

// Module is a pluggable second-factor mechanism. It knows how to mint fresh
// credentials and how to restore them from their stored payload.
type Module interface {
	// Name returns the stable mechanism identifier, e.g. "totp".
	Name() string

	// DisplayName returns a human-readable mechanism name.
	DisplayName() string

	// NewKey mints a fresh, unpersisted credential.
	NewKey(ctx context.Context) (Key, error)

	// LoadKey restores a credential from its stored payload.
	LoadKey(id int64, payload []byte) (Key, error)
}
