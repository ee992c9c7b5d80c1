// Package cache is the in-process read cache that sits in front of the store.
//
// Entries expire lazily: a stale entry is only removed when a Get observes it.
// Writers invalidate a whole entity family at once with DeleteByPrefix instead of
// tracking which cached list queries depend on the record they changed.
//
// The cache is advisory. Every operation is total, and a cache that never holds
// anything (see Nop) must only make the service slower, never wrong.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL is used when Set is called without a positive ttl.
const DefaultTTL = 60 * time.Second

// Store is the cache façade consumed by the data-access services.
type Store interface {
	// Get returns the value stored under key, or false when it is absent or stale.
	Get(key string) (any, bool)
	// Set inserts or fully replaces the entry under key. A ttl of zero or less
	// means the default TTL, never "already expired".
	Set(key string, value any, ttl time.Duration)
	// Delete removes a single entry; no-op if absent.
	Delete(key string)
	// DeleteByPrefix removes every entry whose key starts with prefix and reports how many went.
	DeleteByPrefix(prefix string) int
	// Clear removes every entry.
	Clear()
}

// Config holds the configuration for Cache.
type Config struct {
	DefaultTTL time.Duration
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// OnEviction is called after a stale entry has been lazily evicted by Get.
	// It runs outside the cache lock.
	OnEviction func(key string, value any)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a map of keys to values with a per-entry expiry time.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*entry

	defaultTTL time.Duration
	now        func() time.Time
	onEviction func(key string, value any)

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a new Cache.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultTTL
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Cache{
		items:      make(map[string]*entry),
		defaultTTL: config.DefaultTTL,
		now:        config.Clock,
		onEviction: config.OnEviction,
	}
}

// Set stores value under key until now+ttl. A non-positive ttl uses the default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := &entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}

	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
}

// Get retrieves a value from the cache, evicting it if it has gone stale.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if !c.now().After(e.expiresAt) {
		c.hits.Add(1)
		return e.value, true
	}

	c.misses.Add(1)
	c.evictStale(key)
	return nil, false
}

// evictStale removes key if it is still stale. A Set that raced in between the
// read above and this lock leaves a fresh entry, which must survive.
func (c *Cache) evictStale(key string) {
	c.mu.Lock()
	e, ok := c.items[key]
	if !ok || !c.now().After(e.expiresAt) {
		c.mu.Unlock()
		return
	}
	delete(c.items, key)
	c.mu.Unlock()

	c.evictions.Add(1)
	if c.onEviction != nil {
		c.onEviction(key, e.value)
	}
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeleteByPrefix removes all entries whose key starts with prefix.
func (c *Cache) DeleteByPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			count++
		}
	}
	return count
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*entry)
	c.mu.Unlock()
}

// Size returns the number of entries held, stale ones included.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:   c.Size(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Get reads key from s and asserts it to T. A value of another type is a bug at
// the call site that stored it; it is reported as a miss and left in place.
func Get[T any](s Store, key string) (T, bool) {
	var zero T
	value, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

var _ Store = (*Cache)(nil)
