// Package ratelimiter provides token bucket rate limiting with memory and
// Redis storage backends.
//
// The package implements a token bucket algorithm that allows burst traffic up
// to a configured capacity while maintaining a steady refill rate. The login
// pipeline uses it to throttle repeated second-factor failures per account.
//
// # Basic Usage
//
// Create a rate limiter with a memory store:
//
//	config := ratelimiter.Config{
//		Capacity:       100,         // Maximum tokens (burst capacity)
//		RefillRate:     10,          // Tokens added per interval
//		RefillInterval: time.Second, // Refill frequency
//	}
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Check if a request is allowed
//	result, err := limiter.Allow(ctx, "user:123")
//	if err != nil {
//		// Handle error
//		return
//	}
//
//	if !result.Allowed() {
//		// Rate limit exceeded, retry after result.RetryAfter()
//		return
//	}
//
// # Redis Storage
//
// Share one rate limit state across processes with the Redis store. The
// bucket math runs in a Lua script, so concurrent consumers on different
// hosts stay consistent:
//
//	store := ratelimiter.NewRedisStore(client,
//		ratelimiter.WithKeyPrefix("2fa:attempts:"),
//	)
//	limiter, err := ratelimiter.NewBucket(store, config)
//
// Redis buckets expire on their own once idle; no cleanup goroutine runs.
//
// # Advanced Operations
//
// Consume multiple tokens at once:
//
//	result, err := limiter.AllowN(ctx, "user:123", 5)
//	if err != nil {
//		return err
//	}
//
// Check bucket status without consuming tokens:
//
//	result, err := limiter.Status(ctx, "user:123")
//	if err != nil {
//		return err
//	}
//
//	fmt.Printf("Remaining: %d, Reset at: %v\n",
//		result.Remaining, result.ResetAt)
//
// Reset a bucket (useful for administrative operations):
//
//	err := limiter.Reset(ctx, "user:123")
//	if err != nil {
//		return err
//	}
//
// # Memory Management
//
// The MemoryStore automatically cleans up stale buckets to prevent memory leaks:
//
//	store := ratelimiter.NewMemoryStore(
//		ratelimiter.WithCleanupInterval(10 * time.Minute),
//	)
//
// Buckets are considered stale if they haven't been accessed for 1 hour.
// Disable cleanup by setting the interval to 0.
//
// # Error Types
//
// The package defines several error types for different failure scenarios:
//
//	if errors.Is(err, ratelimiter.ErrInvalidConfig) {
//		// Configuration validation failed
//	}
//	if errors.Is(err, ratelimiter.ErrInvalidTokenCount) {
//		// Token count must be positive
//	}
//	if errors.Is(err, ratelimiter.ErrStoreUnavailable) {
//		// Storage backend is unavailable
//	}
//	if errors.Is(err, ratelimiter.ErrContextCancelled) {
//		// Operation cancelled due to context
//	}
//
// # Thread Safety
//
// All operations are thread-safe and can be used concurrently across multiple goroutines.
// The MemoryStore uses read-write mutexes for optimal performance with concurrent access.
//
// # Token Bucket Algorithm
//
// The implementation uses the standard token bucket algorithm:
//  1. Tokens are added to the bucket at the configured RefillRate and RefillInterval
//  2. Each request consumes one or more tokens
//  3. If insufficient tokens are available, the request is denied
//  4. The bucket capacity limits the maximum burst size
//
// This provides smooth rate limiting with burst tolerance, making it suitable for
// login throttling, user rate limiting, and resource protection scenarios.
package ratelimiter
