package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

const (
	// evictionTarget is the fraction of MaxBytes that eviction shrinks to.
	evictionTarget = 0.7

	// fallbackEntrySize is charged when a value cannot be encoded.
	fallbackEntrySize = 1024
)

// PerfOptions configures a Perf cache.
type PerfOptions struct {
	// MaxBytes bounds the estimated total size. Zero disables size eviction.
	MaxBytes int64
	// TTL is the entry lifetime. Zero keeps entries until evicted.
	TTL time.Duration
	// FrequencyWeight is the recency credit earned by each access.
	FrequencyWeight time.Duration
}

// DefaultPerfOptions returns the bounds used for the engine's memo caches.
func DefaultPerfOptions() PerfOptions {
	return PerfOptions{
		MaxBytes:        10 << 20,
		TTL:             10 * time.Minute,
		FrequencyWeight: time.Second,
	}
}

// Stats is a point-in-time view of a Perf cache's counters.
type Stats struct {
	Entries     int   `json:"entries"`
	Bytes       int64 `json:"bytes"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

type perfEntry[V any] struct {
	key         string
	value       V
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int64
	size        int64
}

// score ranks entries for eviction; lower scores are evicted first.
// Each access adds FrequencyWeight worth of recency, so an entry read often
// outlives one that was merely touched last.
func (e *perfEntry[V]) score(weight time.Duration) int64 {
	return e.lastAccess.UnixMilli() + e.accessCount*weight.Milliseconds()
}

// Perf memoizes values under string keys with TTL expiry and a size bound.
// When the estimated size exceeds MaxBytes, entries are evicted in
// ascending order of lastAccess + accessCount*FrequencyWeight until the
// total is at most 70% of MaxBytes.
type Perf[V any] struct {
	mu      sync.Mutex
	opts    PerfOptions
	sizer   func(key string, value V) int64
	entries map[string]*perfEntry[V]
	total   int64
	stats   Stats
}

// NewPerf returns an empty cache. Entry sizes are estimated from the
// JSON encoding of each value.
func NewPerf[V any](opts PerfOptions) *Perf[V] {
	return &Perf[V]{
		opts:    opts,
		sizer:   jsonSize[V],
		entries: make(map[string]*perfEntry[V]),
	}
}

// WithSizer replaces the size estimator and returns the cache.
func (c *Perf[V]) WithSizer(sizer func(key string, value V) int64) *Perf[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sizer != nil {
		c.sizer = sizer
	}
	return c
}

func jsonSize[V any](key string, value V) int64 {
	buf, err := json.Marshal(value)
	if err != nil {
		return int64(len(key)) + fallbackEntrySize
	}
	return int64(len(key) + len(buf))
}

// Get returns the value for key, recording the access.
func (c *Perf[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	now := nowFunc()
	if c.opts.TTL > 0 && now.After(entry.createdAt.Add(c.opts.TTL)) {
		c.removeLocked(entry)
		c.stats.Expirations++
		c.stats.Misses++
		return zero, false
	}
	entry.lastAccess = now
	entry.accessCount++
	c.stats.Hits++
	return entry.value, true
}

// Set stores value under key and evicts if the size bound is exceeded.
func (c *Perf[V]) Set(key string, value V) {
	size := c.sizer(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}
	now := nowFunc()
	entry := &perfEntry[V]{
		key:        key,
		value:      value,
		createdAt:  now,
		lastAccess: now,
		size:       size,
	}
	c.entries[key] = entry
	c.total += size

	if c.opts.MaxBytes > 0 && c.total > c.opts.MaxBytes {
		c.evictLocked()
	}
}

// GetOrCompute returns the cached value for key, computing and storing it
// on a miss. Errors are returned and not cached.
func (c *Perf[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes the entry for key.
func (c *Perf[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		c.removeLocked(entry)
	}
}

// Clear removes every entry. Counters are kept.
func (c *Perf[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*perfEntry[V])
	c.total = 0
}

// Stats returns a snapshot of the cache counters.
func (c *Perf[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	s.Bytes = c.total
	return s
}

func (c *Perf[V]) removeLocked(entry *perfEntry[V]) {
	delete(c.entries, entry.key)
	c.total -= entry.size
}

func (c *Perf[V]) evictLocked() {
	ranked := make([]*perfEntry[V], 0, len(c.entries))
	for _, entry := range c.entries {
		ranked = append(ranked, entry)
	}
	weight := c.opts.FrequencyWeight
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := ranked[i].score(weight), ranked[j].score(weight)
		if si != sj {
			return si < sj
		}
		return ranked[i].key < ranked[j].key
	})

	target := int64(float64(c.opts.MaxBytes) * evictionTarget)
	for _, entry := range ranked {
		if c.total <= target {
			break
		}
		c.removeLocked(entry)
		c.stats.Evictions++
	}
}
