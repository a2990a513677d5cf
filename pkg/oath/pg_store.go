package oath

import (
	"bytes"
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs. Satisfied by
// *pgxpool.Pool and by pgx transactions wrapped in a pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists mechanism types and credentials in PostgreSQL.
// It implements ConditionalStore.
type PGStore struct {
	db     DB
	cipher Cipher
}

// PGStoreOption configures a PGStore.
type PGStoreOption func(*PGStore)

// WithCipher encrypts credential payloads at rest. Reads decrypt
// transparently, so callers never observe ciphertext.
func WithCipher(c Cipher) PGStoreOption {
	return func(s *PGStore) {
		s.cipher = c
	}
}

// NewPGStore creates a PostgreSQL-backed store.
func NewPGStore(db DB, opts ...PGStoreOption) *PGStore {
	s := &PGStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTypes returns all known mechanism types.
func (s *PGStore) ListTypes(ctx context.Context) ([]TypeRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT oat_id, oat_name FROM oathauth_types ORDER BY oat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TypeRecord
	for rows.Next() {
		var rec TypeRecord
		if err := rows.Scan(&rec.ID, &rec.Name); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CreateType inserts a type row and returns its ID. Concurrent first use of
// the same name resolves to a single row via the unique constraint.
func (s *PGStore) CreateType(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO oathauth_types (oat_name) VALUES ($1)
		 ON CONFLICT (oat_name) DO NOTHING
		 RETURNING oat_id`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// Lost the insert race; the row exists now.
	err = s.db.QueryRow(ctx,
		`SELECT oat_id FROM oathauth_types WHERE oat_name = $1`, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListDevices returns all credentials owned by the given central ID.
func (s *PGStore) ListDevices(ctx context.Context, userID int64) ([]DeviceRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT oad_id, oad_user, oad_type, oad_data, oad_created
		 FROM oathauth_devices WHERE oad_user = $1 ORDER BY oad_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeviceRecord
	for rows.Next() {
		var rec DeviceRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TypeID, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.Payload, err = s.open(rec.Payload); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CreateDevice inserts a credential row and returns it with the assigned ID.
func (s *PGStore) CreateDevice(ctx context.Context, userID, typeID int64, payload []byte) (DeviceRecord, error) {
	stored, err := s.seal(payload)
	if err != nil {
		return DeviceRecord{}, err
	}

	rec := DeviceRecord{
		UserID:  userID,
		TypeID:  typeID,
		Payload: append([]byte(nil), payload...),
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO oathauth_devices (oad_user, oad_type, oad_data, oad_created)
		 VALUES ($1, $2, $3, now())
		 RETURNING oad_id, oad_created`, userID, typeID, stored).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return DeviceRecord{}, err
	}
	return rec, nil
}

// UpdateDevicePayload overwrites the stored payload of one credential.
func (s *PGStore) UpdateDevicePayload(ctx context.Context, id int64, payload []byte) error {
	stored, err := s.seal(payload)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE oathauth_devices SET oad_data = $2 WHERE oad_id = $1`, id, stored)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// SwapDevicePayload overwrites the payload only if it still equals old.
// With a cipher configured the comparison happens on decrypted bytes inside
// a row-locking transaction, since encryption is not deterministic.
func (s *PGStore) SwapDevicePayload(ctx context.Context, id int64, old, updated []byte) (bool, error) {
	if s.cipher == nil {
		tag, err := s.db.Exec(ctx,
			`UPDATE oathauth_devices SET oad_data = $3 WHERE oad_id = $1 AND oad_data = $2`,
			id, old, updated)
		if err != nil {
			return false, err
		}
		if tag.RowsAffected() == 1 {
			return true, nil
		}

		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM oathauth_devices WHERE oad_id = $1)`, id).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, ErrDeviceNotFound
		}
		return false, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var stored []byte
	err = tx.QueryRow(ctx,
		`SELECT oad_data FROM oathauth_devices WHERE oad_id = $1 FOR UPDATE`, id).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrDeviceNotFound
	}
	if err != nil {
		return false, err
	}

	current, err := s.open(stored)
	if err != nil {
		return false, err
	}
	if !bytes.Equal(current, old) {
		return false, nil
	}

	sealed, err := s.seal(updated)
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE oathauth_devices SET oad_data = $2 WHERE oad_id = $1`, id, sealed); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// DeleteDevice removes one credential row.
func (s *PGStore) DeleteDevice(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM oathauth_devices WHERE oad_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// DeleteDevicesByType removes all of a user's credentials of one type.
func (s *PGStore) DeleteDevicesByType(ctx context.Context, userID, typeID int64) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM oathauth_devices WHERE oad_user = $1 AND oad_type = $2`, userID, typeID)
	return err
}

// DeleteAllDevices removes all of a user's credentials.
func (s *PGStore) DeleteAllDevices(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM oathauth_devices WHERE oad_user = $1`, userID)
	return err
}

func (s *PGStore) seal(payload []byte) ([]byte, error) {
	if s.cipher == nil {
		return payload, nil
	}
	return s.cipher.Encrypt(payload)
}

func (s *PGStore) open(payload []byte) ([]byte, error) {
	if s.cipher == nil {
		return payload, nil
	}
	return s.cipher.Decrypt(payload)
}
