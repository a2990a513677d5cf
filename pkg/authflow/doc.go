// Package authflow is the secondary-authentication step of a multi-step
// login pipeline: it decides whether an account must present a second factor
// and whether the submitted response satisfied it.
//
// # Protocol
//
// The pipeline calls Begin when primary authentication succeeds. Accounts
// without an enabled mechanism get OutcomeAbstain, a distinct "not
// applicable" signal that is neither Pass nor Fail. Otherwise Begin returns
// OutcomeAwait plus the challenged mechanism name, which the pipeline keeps
// in its own short-lived state and passes back to Continue along with the
// user's token.
//
// Nothing is held in process memory between the two calls; Continue
// re-resolves the credential set, so the flow survives process restarts and
// load-balanced deployments. A mechanism that changed between Begin and
// Continue fails the attempt.
//
// # Usage
//
//	flow := authflow.NewFlow(repo, sessions,
//	    authflow.WithRateLimiter(authflow.NewBucketLimiter(bucket)),
//	)
//
//	begin, err := flow.Begin(ctx, "alice")
//	if begin.Outcome == authflow.OutcomeAbstain {
//	    // no second factor on this account, step satisfied
//	}
//
//	// next request, carrying the user's OTP:
//	outcome, err := flow.Continue(ctx, authflow.ContinueRequest{
//	    Identity:  "alice",
//	    SessionID: sessionID,
//	    Module:    begin.Module,
//	    Token:     submitted,
//	})
//
// On Pass the flow sets the session's second-factor flag through the
// session.Store; that flag is its only externally visible side effect. Every
// Fail is counted against the configured RateLimiter, and a throttled
// account fails without its token being evaluated.
package authflow
