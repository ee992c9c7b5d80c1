// Package cache remembers model answers so that identical prompts are not sent twice.
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	DefaultCapacity = 256
	DefaultTTL      = time.Hour
)

// LRU is a bounded cache that drops the least recently used entry when full
// and forgets entries a fixed time after they were written. It is safe for
// concurrent use.
type LRU[V any] struct {
	items *ttlcache.Cache[string, V]
}

// NewLRU creates an LRU holding at most capacity entries.
func NewLRU[V any](capacity int, defaultTTL time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &LRU[V]{
		items: ttlcache.New[string, V](
			ttlcache.WithCapacity[string, V](uint64(capacity)),
			ttlcache.WithTTL[string, V](defaultTTL),
			// A hit refreshes recency, not the expiry.
			ttlcache.WithDisableTouchOnHit[string, V](),
		),
	}
}

// Get returns the value under key and marks it as recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	if item := c.items.Get(key); item != nil {
		return item.Value(), true
	}
	var zero V
	return zero, false
}

// Set stores value under key. A non-positive ttl uses the default.
func (c *LRU[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	c.items.Set(key, value, ttl)
}

// Len returns the number of live entries.
func (c *LRU[V]) Len() int {
	return c.items.Len()
}

// Purge removes every entry.
func (c *LRU[V]) Purge() {
	c.items.DeleteAll()
}
