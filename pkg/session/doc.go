// Package session stores the per-login-session "second factor satisfied"
// flag. The authentication flow sets it once on a Pass outcome; authorization
// checks elsewhere read it.
//
// Two backends ship with the package. MemoryStore keeps flags in an
// in-process LRU with TTL expiry and suits single-process deployments and
// tests. RedisStore shares the flag across processes.
//
//	store := session.NewMemoryStore(session.WithTTL(8 * time.Hour))
//	err := store.SetSecondFactorPassed(ctx, sessionID, true)
//	passed, err := store.SecondFactorPassed(ctx, sessionID)
//
// Unknown sessions read as false rather than erroring; an empty session ID
// is rejected with ErrInvalidSessionID.
package session
