package oath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/oathkit/pkg/audit"
	"github.com/dmitrymomot/oathkit/pkg/cache"
	"github.com/dmitrymomot/oathkit/pkg/logger"
)

// Audit actions recorded by the repository.
const (
	ActionKeyCreated     = "2fa.key.created"
	ActionKeyUpdated     = "2fa.key.updated"
	ActionKeyRemoved     = "2fa.key.removed"
	ActionModuleDisabled = "2fa.module.disabled"
	ActionAllKeysRemoved = "2fa.all_keys.removed"
)

// CentralIDResolver maps a local account identity to its stable numeric ID.
// Returning (0, nil) means the account has no central ID; such a user can be
// inspected but cannot own persisted credentials.
type CentralIDResolver func(ctx context.Context, identity string) (int64, error)

// Notifier receives enable/disable events. Implementations must be
// fire-and-forget; the repository never fails an operation on their account.
type Notifier interface {
	NotifyEnabled(ctx context.Context, user string)
	NotifyDisabled(ctx context.Context, user string, selfInitiated bool)
}

// payloadSnapshotter is implemented by keys that remember the payload bytes
// they were loaded with, enabling conditional writes.
type payloadSnapshotter interface {
	PayloadSnapshot() []byte
}

const (
	defaultCacheSize = 1024
	defaultCacheTTL  = 5 * time.Minute
)

// Repository owns the credential set of every user: lookups, creation,
// mutation and removal, with a read cache, audit logging and enable/disable
// notifications.
//
// The cache is invalidation-only. Mutations remove the cached entry after
// the storage write commits, so the next read is authoritative from storage
// and a failure between write and eviction can never leave the cache
// positively wrong.
type Repository struct {
	store       Store
	registry    *Registry
	resolver    CentralIDResolver
	cache       *cache.LRUCache[string, *User]
	audit       audit.Logger
	notifier    Notifier
	log         *slog.Logger
	conditional bool
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithUserCache replaces the default read cache.
func WithUserCache(c *cache.LRUCache[string, *User]) RepositoryOption {
	return func(r *Repository) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithAuditLogger sets the audit sink for credential operations.
func WithAuditLogger(l audit.Logger) RepositoryOption {
	return func(r *Repository) {
		r.audit = l
	}
}

// WithNotifier sets the enable/disable notification sink.
func WithNotifier(n Notifier) RepositoryOption {
	return func(r *Repository) {
		r.notifier = n
	}
}

// WithRepositoryLogger sets the structured logger.
func WithRepositoryLogger(log *slog.Logger) RepositoryOption {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

// WithConditionalWrites makes UpdateKey use compare-and-swap when both the
// store and the credential support it. Two requests consuming different
// scratch tokens from the same credential then surface as
// ErrConcurrentUpdate instead of silently un-consuming one token.
func WithConditionalWrites() RepositoryOption {
	return func(r *Repository) {
		r.conditional = true
	}
}

// NewRepository creates a credential repository.
func NewRepository(store Store, registry *Registry, resolver CentralIDResolver, opts ...RepositoryOption) *Repository {
	if store == nil {
		panic("oath: store cannot be nil")
	}
	if registry == nil {
		panic("oath: registry cannot be nil")
	}
	if resolver == nil {
		panic("oath: central ID resolver cannot be nil")
	}

	r := &Repository{
		store:    store,
		registry: registry,
		resolver: resolver,
		cache:    cache.NewLRUCache[string, *User](defaultCacheSize, cache.WithTTL(defaultCacheTTL)),
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FindByUser returns the user's second-factor aggregate, cache-first.
//
// An account without a central ID yields a user with an empty credential set
// and CanPersist() == false, not an error.
func (r *Repository) FindByUser(ctx context.Context, identity string) (*User, error) {
	if user, ok := r.cache.Get(identity); ok {
		return user, nil
	}

	centralID, err := r.resolver(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("resolve central ID for %q: %w", identity, err)
	}

	user := NewUser(identity, centralID)
	if !user.CanPersist() {
		r.cache.Put(identity, user)
		return user, nil
	}

	records, err := r.store.ListDevices(ctx, centralID)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadKeys, err)
	}
	for _, rec := range records {
		name, err := r.registry.ModuleName(ctx, rec.TypeID)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadKeys, err)
		}
		module, err := r.registry.Module(name)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadKeys, err)
		}
		key, err := module.LoadKey(rec.ID, rec.Payload)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadKeys, err)
		}
		user.addKey(key)
	}

	r.cache.Put(identity, user)
	return user, nil
}

// CreateKey persists a freshly minted credential for the user.
//
// It fails without touching storage when the user has no central ID or when
// a different mechanism is already enabled. The "first credential" check for
// the enabled notification snapshots the pre-insert state, so the
// notification fires exactly once per transition from zero to one.
func (r *Repository) CreateKey(ctx context.Context, user *User, key Key, clientInfo string) (Key, error) {
	if !user.CanPersist() {
		return nil, fmt.Errorf("%w: %s", ErrNoCentralID, user.Identity())
	}
	if enabled := user.Module(); enabled != "" && enabled != key.Module() {
		return nil, fmt.Errorf("%w: requested %q, enabled %q", ErrMechanismConflict, key.Module(), enabled)
	}

	hadKey := user.HasKeys()

	typeID, err := r.registry.ModuleID(ctx, key.Module())
	if err != nil {
		return nil, err
	}
	payload, err := key.MarshalPayload()
	if err != nil {
		return nil, errors.Join(ErrFailedToStoreKey, err)
	}

	rec, err := r.store.CreateDevice(ctx, user.CentralID(), typeID, payload)
	if err != nil {
		return nil, errors.Join(ErrFailedToStoreKey, err)
	}
	r.cache.Remove(user.Identity())

	module, err := r.registry.Module(key.Module())
	if err != nil {
		return nil, err
	}
	persisted, err := module.LoadKey(rec.ID, rec.Payload)
	if err != nil {
		return nil, err
	}
	user.addKey(persisted)

	r.auditLog(ctx, ActionKeyCreated, user, clientInfo,
		audit.WithModule(persisted.Module()),
		audit.WithKeyID(persisted.ID()),
	)

	if !hadKey && r.notifier != nil {
		r.notifier.NotifyEnabled(ctx, user.Identity())
	}

	return persisted, nil
}

// UpdateKey re-persists a credential's payload, typically after a scratch
// token was consumed. The credential must already be persisted.
func (r *Repository) UpdateKey(ctx context.Context, user *User, key Key) error {
	if key.ID() == 0 {
		return ErrKeyNotPersisted
	}

	payload, err := key.MarshalPayload()
	if err != nil {
		return errors.Join(ErrFailedToStoreKey, err)
	}

	if err := r.writePayload(ctx, key, payload); err != nil {
		return err
	}
	r.cache.Remove(user.Identity())

	r.auditLog(ctx, ActionKeyUpdated, user, "",
		audit.WithModule(key.Module()),
		audit.WithKeyID(key.ID()),
	)
	return nil
}

// writePayload picks the conditional write path when enabled and available.
func (r *Repository) writePayload(ctx context.Context, key Key, payload []byte) error {
	if r.conditional {
		cs, csOK := r.store.(ConditionalStore)
		snap, snapOK := key.(payloadSnapshotter)
		if csOK && snapOK && snap.PayloadSnapshot() != nil {
			swapped, err := cs.SwapDevicePayload(ctx, key.ID(), snap.PayloadSnapshot(), payload)
			if err != nil {
				return errors.Join(ErrFailedToStoreKey, err)
			}
			if !swapped {
				return ErrConcurrentUpdate
			}
			return nil
		}
	}

	if err := r.store.UpdateDevicePayload(ctx, key.ID(), payload); err != nil {
		return errors.Join(ErrFailedToStoreKey, err)
	}
	return nil
}

// RemoveKey deletes one credential and fires a disabled notification.
func (r *Repository) RemoveKey(ctx context.Context, user *User, key Key, clientInfo string, selfInitiated bool) error {
	if key.ID() == 0 {
		return ErrKeyNotPersisted
	}

	if err := r.store.DeleteDevice(ctx, key.ID()); err != nil {
		return err
	}
	r.cache.Remove(user.Identity())
	user.removeKey(key.ID())

	r.auditLog(ctx, ActionKeyRemoved, user, clientInfo,
		audit.WithModule(key.Module()),
		audit.WithKeyID(key.ID()),
		audit.WithMetadata(map[string]any{"self_initiated": selfInitiated}),
	)

	if r.notifier != nil {
		r.notifier.NotifyDisabled(ctx, user.Identity(), selfInitiated)
	}
	return nil
}

// RemoveAllOfType deletes every credential of one mechanism for the user.
func (r *Repository) RemoveAllOfType(ctx context.Context, user *User, moduleName, clientInfo string, selfInitiated bool) error {
	if !user.CanPersist() {
		return fmt.Errorf("%w: %s", ErrNoCentralID, user.Identity())
	}

	typeID, err := r.registry.ModuleID(ctx, moduleName)
	if err != nil {
		return err
	}

	if err := r.store.DeleteDevicesByType(ctx, user.CentralID(), typeID); err != nil {
		return err
	}
	r.cache.Remove(user.Identity())
	user.removeModuleKeys(moduleName)

	r.auditLog(ctx, ActionModuleDisabled, user, clientInfo,
		audit.WithModule(moduleName),
		audit.WithMetadata(map[string]any{"self_initiated": selfInitiated}),
	)

	if r.notifier != nil {
		r.notifier.NotifyDisabled(ctx, user.Identity(), selfInitiated)
	}
	return nil
}

// RemoveAll deletes every credential of the user regardless of mechanism.
// The user transitions to "no second factor".
func (r *Repository) RemoveAll(ctx context.Context, user *User, clientInfo string, selfInitiated bool) error {
	if !user.CanPersist() {
		return fmt.Errorf("%w: %s", ErrNoCentralID, user.Identity())
	}

	removed := make(map[string]struct{})
	for _, key := range user.Keys() {
		removed[key.Module()] = struct{}{}
	}
	modules := make([]string, 0, len(removed))
	for name := range removed {
		modules = append(modules, name)
	}

	if err := r.store.DeleteAllDevices(ctx, user.CentralID()); err != nil {
		return err
	}
	r.cache.Remove(user.Identity())
	user.clearKeys()

	r.auditLog(ctx, ActionAllKeysRemoved, user, clientInfo,
		audit.WithMetadata(map[string]any{
			"modules":        modules,
			"self_initiated": selfInitiated,
		}),
	)

	if r.notifier != nil {
		r.notifier.NotifyDisabled(ctx, user.Identity(), selfInitiated)
	}
	return nil
}

// auditLog records an audit event best-effort. A failing audit sink must not
// fail the credential operation that already committed.
func (r *Repository) auditLog(ctx context.Context, action string, user *User, clientInfo string, opts ...audit.EventOption) {
	if r.audit == nil {
		return
	}

	opts = append(opts, audit.WithUser(user.Identity()))
	if clientInfo != "" {
		opts = append(opts, audit.WithClientInfo(clientInfo))
	}
	if err := r.audit.Log(ctx, action, opts...); err != nil {
		r.log.LogAttrs(ctx, slog.LevelWarn, "Failed to write audit entry",
			slog.String("action", action),
			logger.UserID(user.Identity()),
			logger.Error(err),
		)
	}
}
