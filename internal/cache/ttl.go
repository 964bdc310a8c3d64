// Package cache provides the in-memory caches shared by the detection
// engine: a keyed TTL store for probe results and a size-bounded memo
// cache for derived values.
package cache

import (
	"sync"
	"time"
)

var nowFunc = time.Now

type ttlEntry[V any] struct {
	value     V
	createdAt time.Time
}

// TTL maps keys to values that go stale a fixed duration after they were
// stored. Expiry is checked on read; nothing sweeps in the background.
// A non-positive ttl keeps entries until they are deleted.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[K]ttlEntry[V]
}

// NewTTL returns an empty cache whose entries live for ttl.
func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		ttl:     ttl,
		entries: make(map[K]ttlEntry[V]),
	}
}

// Get returns the value stored for key unless it is missing or stale.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && nowFunc().After(entry.createdAt.Add(c.ttl)) {
		delete(c.entries, key)
		return zero, false
	}
	return entry.value, true
}

// Set stores value for key, replacing any previous entry and restarting
// its lifetime.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry[V]{value: value, createdAt: nowFunc()}
}

// Delete removes the entry for key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]ttlEntry[V])
}

// Len reports the number of stored entries, stale ones included.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Lifetime returns the configured time-to-live.
func (c *TTL[K, V]) Lifetime() time.Duration {
	return c.ttl
}
