package cache

import (
	"time"
)

// Entry wraps a cached value with freshness metadata.
type Entry[T any] struct {
	// Value is the cached payload
	Value T

	// CachedAt is when the value was stored
	CachedAt time.Time

	// Expires is when the entry becomes stale. Zero means never.
	Expires time.Time
}

// NewEntry creates an entry that expires after ttl. A ttl <= 0 keeps the
// entry for the lifetime of the cache.
func NewEntry[T any](value T, ttl time.Duration) Entry[T] {
	now := time.Now()
	e := Entry[T]{Value: value, CachedAt: now}
	if ttl > 0 {
		e.Expires = now.Add(ttl)
	}
	return e
}

// IsExpired returns true if the entry has a deadline and it has passed.
func (e Entry[T]) IsExpired() bool {
	return !e.Expires.IsZero() && time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 for entries that never expire or already expired.
func (e Entry[T]) TTL() time.Duration {
	if e.Expires.IsZero() {
		return 0
	}
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
