package authflow

import (
	"context"

	"github.com/dmitrymomot/oathkit/pkg/ratelimiter"
)

// RateLimiter is the throttling policy boundary: a check whether an account
// is currently blocked from attempting, plus an increment on every failed
// attempt. The flow calls it; the policy lives outside.
type RateLimiter interface {
	Throttled(ctx context.Context, identity string) (bool, error)
	RecordFailure(ctx context.Context, identity string) error
}

// BucketLimiter adapts a token bucket to the RateLimiter boundary. Every
// failure consumes a token; an empty bucket means the account is throttled.
type BucketLimiter struct {
	bucket *ratelimiter.Bucket
}

// NewBucketLimiter creates a limiter over the given bucket.
func NewBucketLimiter(bucket *ratelimiter.Bucket) *BucketLimiter {
	return &BucketLimiter{bucket: bucket}
}

// Throttled reports whether the account has exhausted its attempts.
func (l *BucketLimiter) Throttled(ctx context.Context, identity string) (bool, error) {
	res, err := l.bucket.Status(ctx, identity)
	if err != nil {
		return false, err
	}
	return res.Remaining <= 0, nil
}

// RecordFailure consumes one attempt token for the account.
func (l *BucketLimiter) RecordFailure(ctx context.Context, identity string) error {
	_, err := l.bucket.Allow(ctx, identity)
	return err
}
