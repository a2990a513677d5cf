package authflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/oathkit/pkg/logger"
	"github.com/dmitrymomot/oathkit/pkg/oath"
	"github.com/dmitrymomot/oathkit/pkg/session"
)

// BeginResult is the outcome of starting secondary authentication.
type BeginResult struct {
	// Outcome is OutcomeAbstain when the account has no second factor,
	// OutcomeAwait when a challenge was issued.
	Outcome Outcome

	// Module is the mechanism the user must respond with. Empty on Abstain.
	// The pipeline records it and passes it back in ContinueRequest.
	Module string
}

// ContinueRequest carries the user's response to a pending challenge.
type ContinueRequest struct {
	// Identity is the account being authenticated.
	Identity string

	// SessionID identifies the login session to flag on Pass.
	SessionID string

	// Module is the mechanism recorded at Begin. A mechanism change between
	// Begin and Continue fails the attempt.
	Module string

	// Token is the submitted OTP or scratch code.
	Token string
}

// Flow drives the secondary-authentication step of a login pipeline.
//
// No state is held in process memory between Begin and Continue; each call
// re-resolves the user's credential set from the repository. The pipeline
// retains only the challenged module name across the gap.
type Flow struct {
	repo     *oath.Repository
	sessions session.Store
	limiter  RateLimiter
	log      *slog.Logger
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithRateLimiter sets the failure throttling policy.
func WithRateLimiter(l RateLimiter) FlowOption {
	return func(f *Flow) {
		f.limiter = l
	}
}

// WithFlowLogger sets the structured logger.
func WithFlowLogger(log *slog.Logger) FlowOption {
	return func(f *Flow) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFlow creates a secondary-authentication flow.
func NewFlow(repo *oath.Repository, sessions session.Store, opts ...FlowOption) *Flow {
	if repo == nil {
		panic("authflow: repository cannot be nil")
	}
	if sessions == nil {
		panic("authflow: session store cannot be nil")
	}

	f := &Flow{
		repo:     repo,
		sessions: sessions,
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Begin starts secondary authentication for the account. Accounts without an
// enabled mechanism get OutcomeAbstain, never Pass or Fail.
func (f *Flow) Begin(ctx context.Context, identity string) (BeginResult, error) {
	user, err := f.repo.FindByUser(ctx, identity)
	if err != nil {
		return BeginResult{}, err
	}

	if !user.HasKeys() {
		return BeginResult{Outcome: OutcomeAbstain}, nil
	}

	f.log.LogAttrs(ctx, slog.LevelDebug, "Second-factor challenge issued",
		logger.UserID(identity),
		logger.Module(user.Module()),
	)
	return BeginResult{Outcome: OutcomeAwait, Module: user.Module()}, nil
}

// Continue evaluates the user's response to the challenge issued by Begin.
//
// On Pass the session's second-factor flag is set; that flag is the only
// side effect visible outside this package. Every Fail is counted against
// the rate limiter, and a throttled account fails without verification.
func (f *Flow) Continue(ctx context.Context, req ContinueRequest) (Outcome, error) {
	if req.Module == "" {
		return OutcomeFail, ErrNoPendingChallenge
	}
	if req.SessionID == "" {
		return OutcomeFail, ErrMissingSessionID
	}

	if throttled := f.throttled(ctx, req.Identity); throttled {
		return OutcomeFail, nil
	}

	user, err := f.repo.FindByUser(ctx, req.Identity)
	if err != nil {
		return OutcomeFail, err
	}

	// The mechanism must still be the one challenged at Begin. A credential
	// set that changed mid-flow (disabled, or switched mechanism) fails.
	if user.Module() != req.Module {
		return f.fail(ctx, req.Identity)
	}

	for _, key := range user.Keys() {
		res, err := key.Verify(ctx, req.Token)
		if err != nil {
			return OutcomeFail, err
		}
		if !res.OK {
			continue
		}

		if res.KeyDirty {
			if err := f.repo.UpdateKey(ctx, user, key); err != nil {
				if errors.Is(err, oath.ErrConcurrentUpdate) {
					// The scratch token was spent by a concurrent request.
					f.log.LogAttrs(ctx, slog.LevelWarn, "Scratch token raced a concurrent consumption",
						logger.UserID(req.Identity),
						logger.KeyID(key.ID()),
					)
					return f.fail(ctx, req.Identity)
				}
				return OutcomeFail, err
			}
		}

		if err := f.sessions.SetSecondFactorPassed(ctx, req.SessionID, true); err != nil {
			return OutcomeFail, err
		}

		f.log.LogAttrs(ctx, slog.LevelInfo, "Second factor satisfied",
			logger.UserID(req.Identity),
			logger.Module(req.Module),
			logger.KeyID(key.ID()),
		)
		return OutcomePass, nil
	}

	return f.fail(ctx, req.Identity)
}

// throttled consults the rate limiter, failing open on limiter errors: an
// unreachable limiter store must not lock every account out of login.
func (f *Flow) throttled(ctx context.Context, identity string) bool {
	if f.limiter == nil {
		return false
	}

	throttled, err := f.limiter.Throttled(ctx, identity)
	if err != nil {
		f.log.LogAttrs(ctx, slog.LevelWarn, "Rate limiter check failed",
			logger.UserID(identity),
			logger.Error(err),
		)
		return false
	}
	return throttled
}

func (f *Flow) fail(ctx context.Context, identity string) (Outcome, error) {
	if f.limiter != nil {
		if err := f.limiter.RecordFailure(ctx, identity); err != nil {
			f.log.LogAttrs(ctx, slog.LevelWarn, "Failed to record attempt against rate limiter",
				logger.UserID(identity),
				logger.Error(err),
			)
		}
	}
	return OutcomeFail, nil
}
