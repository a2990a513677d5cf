// Package audit records structured audit events for second-factor credential
// operations: key creation, payload updates, key removal, and verification
// outcomes.
//
// Events carry the acting account, client information, the mechanism name,
// and the device identifier, so operators can reconstruct who changed which
// credential from where. The Logger assigns each event a UUID and a
// timestamp; persistence goes through the Storage interface.
//
// # Usage
//
//	logger := audit.NewLogger(audit.NewMemoryStorage())
//	_ = logger.Log(ctx, "2fa.key.created",
//	    audit.WithUser("alice"),
//	    audit.WithModule("totp"),
//	    audit.WithKeyID(42),
//	    audit.WithClientInfo("198.51.100.7"),
//	)
//
// Context extractors registered via WithUserExtractor and
// WithClientInfoExtractor fill in fields the call site does not set,
// which keeps request-scoped data out of the domain layer.
package audit
