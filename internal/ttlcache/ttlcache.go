// Package ttlcache is a small in-process cache with per-entry expiry.
// The clock is injected so tests can advance time deterministically.
package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type Cache[K comparable, V any] struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.Mutex
	entries map[K]entry[V]
}

type Option[K comparable, V any] func(*Cache[K, V])

// WithClock replaces the wall clock. Test hook.
func WithClock[K comparable, V any](clock func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func New[K comparable, V any](ttl time.Duration, opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		ttl:     ttl,
		clock:   func() time.Time { return time.Now().UTC() },
		entries: make(map[K]entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key if present and not expired.
// Expired entries are removed on access; TTL expiry is the only
// invalidation mechanism besides Invalidate.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.clock().After(item.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.clock().Add(c.ttl),
	}
}

func (c *Cache[K, V]) Invalidate(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	n := 0
	for key, item := range c.entries {
		if now.After(item.expiresAt) {
			delete(c.entries, key)
			continue
		}
		n++
	}
	return n
}
