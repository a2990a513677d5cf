package oath

import (
	"context"
	"time"
)

// TypeRecord is one row of the mechanism name to type ID mapping.
type TypeRecord struct {
	ID   int64
	Name string
}

// DeviceRecord is one stored credential row.
type DeviceRecord struct {
	ID        int64
	UserID    int64
	TypeID    int64
	Payload   []byte
	CreatedAt time.Time
}

// Store is the persistence contract for mechanism types and credentials.
type Store interface {
	// ListTypes returns all known mechanism types.
	ListTypes(ctx context.Context) ([]TypeRecord, error)

	// CreateType inserts a type row for name and returns its ID. The insert
	// is idempotent: if the name already exists, the existing ID is returned
	// and no duplicate is created, including under concurrent first use.
	CreateType(ctx context.Context, name string) (int64, error)

	// ListDevices returns all credentials owned by the given central ID.
	ListDevices(ctx context.Context, userID int64) ([]DeviceRecord, error)

	// CreateDevice inserts a credential row and returns it with the assigned ID.
	CreateDevice(ctx context.Context, userID, typeID int64, payload []byte) (DeviceRecord, error)

	// UpdateDevicePayload overwrites the stored payload of one credential.
	// Returns ErrDeviceNotFound if the row does not exist.
	UpdateDevicePayload(ctx context.Context, id int64, payload []byte) error

	// DeleteDevice removes one credential row.
	DeleteDevice(ctx context.Context, id int64) error

	// DeleteDevicesByType removes all of a user's credentials of one type.
	DeleteDevicesByType(ctx context.Context, userID, typeID int64) error

	// DeleteAllDevices removes all of a user's credentials.
	DeleteAllDevices(ctx context.Context, userID int64) error
}

// ConditionalStore extends Store with an optimistic-concurrency write.
// Stores that support it let the repository detect lost updates when two
// requests consume scratch tokens from the same credential concurrently.
type ConditionalStore interface {
	Store

	// SwapDevicePayload overwrites the stored payload only if it still equals
	// old. It returns false when the stored payload has diverged, and
	// ErrDeviceNotFound if the row does not exist.
	SwapDevicePayload(ctx context.Context, id int64, old, updated []byte) (bool, error)
}
