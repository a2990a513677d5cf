package oath

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process use.
// It implements ConditionalStore.
type MemoryStore struct {
	mu           sync.Mutex
	types        map[string]int64
	typeOrder    []TypeRecord
	devices      map[int64]*DeviceRecord
	nextTypeID   int64
	nextDeviceID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		types:   make(map[string]int64),
		devices: make(map[int64]*DeviceRecord),
	}
}

// ListTypes returns all known mechanism types in insertion order.
func (s *MemoryStore) ListTypes(ctx context.Context) ([]TypeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TypeRecord(nil), s.typeOrder...), nil
}

// CreateType inserts a type row, returning the existing ID when the name is
// already known.
func (s *MemoryStore) CreateType(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.types[name]; ok {
		return id, nil
	}

	s.nextTypeID++
	s.types[name] = s.nextTypeID
	s.typeOrder = append(s.typeOrder, TypeRecord{ID: s.nextTypeID, Name: name})
	return s.nextTypeID, nil
}

// ListDevices returns all credentials owned by the given central ID.
func (s *MemoryStore) ListDevices(ctx context.Context, userID int64) ([]DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []DeviceRecord
	for _, rec := range s.devices {
		if rec.UserID == userID {
			out = append(out, cloneDeviceRecord(rec))
		}
	}
	// Map iteration order is random; return rows by assigned ID.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateDevice inserts a credential row and returns it with the assigned ID.
func (s *MemoryStore) CreateDevice(ctx context.Context, userID, typeID int64, payload []byte) (DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDeviceID++
	rec := &DeviceRecord{
		ID:        s.nextDeviceID,
		UserID:    userID,
		TypeID:    typeID,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: time.Now(),
	}
	s.devices[rec.ID] = rec
	return cloneDeviceRecord(rec), nil
}

// UpdateDevicePayload overwrites the stored payload of one credential.
func (s *MemoryStore) UpdateDevicePayload(ctx context.Context, id int64, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	rec.Payload = append([]byte(nil), payload...)
	return nil
}

// SwapDevicePayload overwrites the payload only if it still equals old.
func (s *MemoryStore) SwapDevicePayload(ctx context.Context, id int64, old, updated []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.devices[id]
	if !ok {
		return false, ErrDeviceNotFound
	}
	if !bytes.Equal(rec.Payload, old) {
		return false, nil
	}
	rec.Payload = append([]byte(nil), updated...)
	return true, nil
}

// DeleteDevice removes one credential row.
func (s *MemoryStore) DeleteDevice(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(s.devices, id)
	return nil
}

// DeleteDevicesByType removes all of a user's credentials of one type.
func (s *MemoryStore) DeleteDevicesByType(ctx context.Context, userID, typeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.devices {
		if rec.UserID == userID && rec.TypeID == typeID {
			delete(s.devices, id)
		}
	}
	return nil
}

// DeleteAllDevices removes all of a user's credentials.
func (s *MemoryStore) DeleteAllDevices(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.devices {
		if rec.UserID == userID {
			delete(s.devices, id)
		}
	}
	return nil
}

func cloneDeviceRecord(rec *DeviceRecord) DeviceRecord {
	out := *rec
	out.Payload = append([]byte(nil), rec.Payload...)
	return out
}
