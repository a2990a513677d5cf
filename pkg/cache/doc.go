// Package cache provides a generic, thread-safe LRU (Least Recently Used)
// cache with optional per-entry TTL.
//
// The cache automatically evicts the least recently used items when it reaches
// its configured capacity. With a TTL configured, entries older than the TTL
// are treated as absent and evicted lazily on access, which makes the cache
// suitable as a short-lived read cache in front of a storage layer.
//
// # Key Features
//
//   - Generic implementation supporting any comparable key type and any value type
//   - Thread-safe operations with mutex-based synchronization
//   - Automatic LRU eviction when capacity is exceeded
//   - Optional per-entry TTL with lazy expiry
//   - Optional eviction callbacks for resource cleanup
//   - Zero dependencies - uses only Go standard library
//   - O(1) operations for Get, Put, and Remove
//
// # Usage
//
// Create a cache with a specified capacity and a short TTL:
//
//	c := cache.NewLRUCache[string, *User](1024, cache.WithTTL(30*time.Second))
//
// Basic operations:
//
//	// Add items to cache
//	c.Put("user:123", user)
//
//	// Retrieve items (marks as recently used, expired entries report absent)
//	user, found := c.Get("user:123")
//
//	// Invalidate after a write so the next read is authoritative
//	c.Remove("user:123")
//
// # Thread Safety
//
// All operations are thread-safe and can be called concurrently from multiple
// goroutines.
package cache
