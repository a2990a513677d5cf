// Package oath is the credential lifecycle engine for second-factor
// authentication: a registry of pluggable mechanisms, per-user credential
// storage with a single-mechanism invariant, and the TOTP mechanism with
// single-use scratch tokens.
//
// # Architecture
//
// Module is a pluggable mechanism ("totp" today; the registry admits others).
// Registry maps configured mechanism names to compact persisted type IDs,
// creating type rows lazily on first reference. Repository owns every user's
// credential set against a Store, keeps an invalidation-only read cache,
// writes audit entries and fires enable/disable notifications through a
// Notifier.
//
// Two Store implementations ship with the package: MemoryStore for tests and
// PGStore for PostgreSQL. Both implement ConditionalStore, which adds a
// compare-and-swap payload write the repository can use to detect concurrent
// scratch-token consumption.
//
// # Usage
//
//	store := oath.NewPGStore(pool, oath.WithCipher(cipher))
//	registry, err := oath.NewRegistry(store, oath.NewTOTPModule(oath.WithIssuer("Example")))
//	if err != nil {
//	    return err
//	}
//	repo := oath.NewRepository(store, registry, resolver,
//	    oath.WithAuditLogger(auditLog),
//	    oath.WithNotifier(notifier),
//	    oath.WithConditionalWrites(),
//	)
//
//	user, err := repo.FindByUser(ctx, "alice")
//	if err != nil {
//	    return err
//	}
//	module, _ := registry.Module(oath.ModuleTOTP)
//	key, _ := module.NewKey(ctx)
//	persisted, err := repo.CreateKey(ctx, user, key, clientIP)
//
// # Invariants
//
// A user has at most one enabled mechanism at a time; CreateKey rejects a
// credential of a second mechanism with ErrMechanismConflict naming both.
// An account without a central ID can be inspected but never written to.
// Verification that consumes a scratch token marks the key dirty and the
// caller must re-persist it with UpdateKey.
//
// # Error Handling
//
// Domain violations surface as sentinel errors (ErrMechanismConflict,
// ErrNoCentralID, ErrKeyNotPersisted, ErrConcurrentUpdate) checkable with
// errors.Is. Storage failures are wrapped and propagated; a wrong OTP or
// scratch code is a normal false verification result, not an error.
package oath
