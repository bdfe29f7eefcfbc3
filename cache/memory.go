package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/resource"
)

// Eviction reasons reported to metrics.
const (
	ReasonSize     = "size"
	ReasonExpired  = "expired"
	ReasonPressure = "pressure"
)

// PressureFunc reports whether the process is short on memory.
type PressureFunc func() bool

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithPressure sets the memory pressure signal polled by the janitor.
func WithPressure(fn PressureFunc) MemoryOption {
	return func(c *MemoryCache) {
		c.pressure = fn
	}
}

// WithMetrics records evictions.
func WithMetrics(m observe.Metrics) MemoryOption {
	return func(c *MemoryCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Loads     uint64
}

// MemoryCache is a bounded in-memory cache. Entries expire after a period
// without access and the least recently used entry is evicted when the
// bound is reached.
type MemoryCache struct {
	mu      sync.Mutex
	entries *simplelru.LRU[resource.Key, *cacheEntry]
	policy  Policy

	now      func() time.Time
	pressure PressureFunc
	metrics  observe.Metrics

	// reason labels callbacks fired by the LRU; guarded by mu.
	reason  string
	evicted int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type cacheEntry struct {
	value      resource.Artifact
	lastAccess time.Time
}

// NewMemoryCache creates a new in-memory cache with the given policy.
func NewMemoryCache(policy Policy, opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		policy:  policy,
		now:     time.Now,
		metrics: observe.NoopMetrics(),
		reason:  ReasonSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Only fails for a non-positive size, which Capacity rules out.
	c.entries, _ = simplelru.NewLRU[resource.Key, *cacheEntry](policy.Capacity(), c.onEvict)
	return c
}

func (c *MemoryCache) onEvict(resource.Key, *cacheEntry) {
	if c.reason == "" {
		return
	}
	c.evicted++
}

// flush reports the evictions counted since the last flush under reason.
// Called with mu held.
func (c *MemoryCache) flush(reason string) int {
	n := c.evicted
	c.evicted = 0
	if n > 0 {
		c.evictions.Add(uint64(n))
		c.metrics.RecordEviction(context.Background(), reason, n)
	}
	return n
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or
// expiry; a negative entry is (nil, true).
func (c *MemoryCache) Get(_ context.Context, key resource.Key) (resource.Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	now := c.now()
	if c.policy.Expired(entry.lastAccess, now) {
		c.reason = ReasonExpired
		c.entries.Remove(key)
		c.flush(ReasonExpired)
		c.reason = ReasonSize
		c.misses.Add(1)
		return nil, false
	}

	entry.lastAccess = now
	c.hits.Add(1)
	return entry.value, true
}

// Set stores a value. A nil artifact stores a negative entry.
func (c *MemoryCache) Set(_ context.Context, key resource.Key, artifact resource.Artifact) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Add(key, &cacheEntry{value: artifact, lastAccess: c.now()})
	c.flush(ReasonSize)
	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key resource.Key) error {
	c.mu.Lock()
	c.reason = ""
	c.entries.Remove(key)
	c.reason = ReasonSize
	c.mu.Unlock()
	return nil
}

// DeleteFunc removes every entry whose key matches and returns how many
// were removed.
func (c *MemoryCache) DeleteFunc(match func(resource.Key) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reason = ""
	defer func() { c.reason = ReasonSize }()

	n := 0
	for _, key := range c.entries.Keys() {
		if match(key) && c.entries.Remove(key) {
			n++
		}
	}
	return n
}

// Contains reports whether key has a live entry without marking it accessed.
func (c *MemoryCache) Contains(key resource.Key) bool {
	_, ok := c.Peek(key)
	return ok
}

// Peek returns a live entry like Get but leaves recency, access time and
// the hit and miss counters untouched.
func (c *MemoryCache) Peek(key resource.Key) (resource.Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Peek(key)
	if !ok || c.policy.Expired(entry.lastAccess, c.now()) {
		return nil, false
	}
	return entry.value, true
}

// Len returns the number of stored entries, expired ones included until
// they are swept.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Sweep removes expired entries and returns how many were removed.
// Recency order matches access order, so it stops at the first live entry.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.reason = ReasonExpired
	defer func() { c.reason = ReasonSize }()

	for {
		_, entry, ok := c.entries.GetOldest()
		if !ok || !c.policy.Expired(entry.lastAccess, now) {
			break
		}
		c.entries.RemoveOldest()
	}
	return c.flush(ReasonExpired)
}

// Shrink drops the least recently used half of the entries and returns how
// many were removed.
func (c *MemoryCache) Shrink() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reason = ReasonPressure
	defer func() { c.reason = ReasonSize }()

	drop := (c.entries.Len() + 1) / 2
	for i := 0; i < drop; i++ {
		c.entries.RemoveOldest()
	}
	return c.flush(ReasonPressure)
}

// Purge removes every entry.
func (c *MemoryCache) Purge() {
	c.mu.Lock()
	c.reason = ""
	c.entries.Purge()
	c.reason = ReasonSize
	c.mu.Unlock()
}

// Start runs the janitor until ctx is done. Each tick sweeps expired
// entries and shrinks the cache while the pressure signal is raised.
func (c *MemoryCache) Start(ctx context.Context) {
	ticker := time.NewTicker(c.policy.sweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
			if c.pressure != nil && c.pressure() {
				c.Shrink()
			}
		}
	}
}

// Stats returns the current counters.
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Capacity:  c.policy.Capacity(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Policy returns the cache policy.
func (c *MemoryCache) Policy() Policy {
	return c.policy
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
