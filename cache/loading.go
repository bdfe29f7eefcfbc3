package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/resource"
)

// ErrBulkDeleteUnsupported is returned by InvalidateFunc when the wrapped
// cache cannot delete by predicate.
var ErrBulkDeleteUnsupported = errors.New("cache: cache does not support DeleteFunc")

// LoadFunc computes the result for a key. A non-nil error or a nil artifact
// is cached as a negative entry.
type LoadFunc func(ctx context.Context, key resource.Key) (resource.Artifact, error)

// LoadingOption configures a Loading cache.
type LoadingOption func(*Loading)

// WithLookupMetrics records one lookup outcome per Get.
func WithLookupMetrics(m observe.Metrics) LoadingOption {
	return func(l *Loading) {
		if m != nil {
			l.metrics = m
		}
	}
}

// peeker is implemented by caches that can read an entry without counting
// the lookup.
type peeker interface {
	Peek(key resource.Key) (resource.Artifact, bool)
}

// bulkDeleter is implemented by caches that can delete by predicate.
type bulkDeleter interface {
	DeleteFunc(match func(resource.Key) bool) int
}

// flight tracks a running load. stale is set when the key is invalidated
// while the load runs; staleAt is the epoch of that first invalidation.
type flight struct {
	stale   bool
	staleAt uint64
}

type flightResult struct {
	art     resource.Artifact
	stale   bool
	staleAt uint64
}

// Loading wraps a Cache with single-flight computation.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - At most one load per key runs at a time; concurrent callers for the
//     same missing key share its result.
//   - The load runs detached from the caller's cancellation, so a caller
//     giving up never aborts a load other callers are waiting on.
//   - Failed loads are cached negatively and are not retried until the
//     entry is evicted or invalidated.
//   - A load overtaken by Invalidate never writes its result. Callers that
//     started after the invalidation wait for it and then load again.
//   - Invalid keys are never loaded and read as absent.
type Loading struct {
	cache   Cache
	load    LoadFunc
	group   singleflight.Group
	metrics observe.Metrics
	loads   atomic.Uint64

	mu      sync.Mutex
	epoch   uint64
	running map[resource.Key]*flight
}

// NewLoading creates a loading cache over c.
func NewLoading(c Cache, load LoadFunc, opts ...LoadingOption) (*Loading, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if load == nil {
		return nil, ErrNilLoader
	}
	l := &Loading{
		cache:   c,
		load:    load,
		metrics: observe.NoopMetrics(),
		running: make(map[resource.Key]*flight),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Get returns the artifact for key, loading it on a miss. ok is false for a
// negative result or an invalid key.
func (l *Loading) Get(ctx context.Context, key resource.Key) (resource.Artifact, bool) {
	if ValidateKey(key) != nil {
		l.metrics.RecordLookup(ctx, observe.LookupMiss)
		return nil, false
	}

	if art, ok := l.cache.Get(ctx, key); ok {
		if art == nil {
			l.metrics.RecordLookup(ctx, observe.LookupNegative)
			return nil, false
		}
		l.metrics.RecordLookup(ctx, observe.LookupHit)
		return art, true
	}

	l.mu.Lock()
	start := l.epoch
	l.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	fk := flightKey(key)
	for {
		v, _, shared := l.group.Do(fk, func() (any, error) {
			return l.fill(detached, key), nil
		})
		res, _ := v.(flightResult)

		// The flight was invalidated before this call began; its result
		// predates the invalidation, so load again.
		if res.stale && res.staleAt <= start {
			continue
		}

		if shared {
			l.metrics.RecordLookup(ctx, observe.LookupShared)
		} else {
			l.metrics.RecordLookup(ctx, observe.LookupMiss)
		}
		return res.art, res.art != nil
	}
}

// fill runs inside the flight. The cache re-check and the registration of
// the flight happen under mu so an Invalidate either sees the flight or
// has already removed what the re-check would find.
func (l *Loading) fill(ctx context.Context, key resource.Key) flightResult {
	l.mu.Lock()
	if art, ok := l.peek(ctx, key); ok {
		l.mu.Unlock()
		return flightResult{art: art}
	}
	f := &flight{}
	l.running[key] = f
	l.mu.Unlock()

	l.loads.Add(1)
	art, err := l.load(ctx, key)
	if err != nil {
		art = nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running[key] == f {
		delete(l.running, key)
	}
	if !f.stale {
		_ = l.cache.Set(ctx, key, art)
	}
	return flightResult{art: art, stale: f.stale, staleAt: f.staleAt}
}

// peek reads key without counting a second lookup for the same Get.
func (l *Loading) peek(ctx context.Context, key resource.Key) (resource.Artifact, bool) {
	if p, ok := l.cache.(peeker); ok {
		return p.Peek(key)
	}
	return l.cache.Get(ctx, key)
}

// GetIfPresent returns a cached positive result without loading.
func (l *Loading) GetIfPresent(ctx context.Context, key resource.Key) (resource.Artifact, bool) {
	art, ok := l.cache.Get(ctx, key)
	if !ok || art == nil {
		return nil, false
	}
	return art, true
}

// Invalidate drops the cached result for key. A load already in flight
// keeps running but its result is not cached.
func (l *Loading) Invalidate(ctx context.Context, key resource.Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.epoch++
	l.markStale(key)
	return l.cache.Delete(ctx, key)
}

// InvalidateFunc drops every cached result whose key matches and returns
// how many were dropped. Matching loads in flight are handled as in
// Invalidate.
func (l *Loading) InvalidateFunc(_ context.Context, match func(resource.Key) bool) (int, error) {
	bd, ok := l.cache.(bulkDeleter)
	if !ok {
		return 0, ErrBulkDeleteUnsupported
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.epoch++
	for key := range l.running {
		if match(key) {
			l.markStale(key)
		}
	}
	return bd.DeleteFunc(match), nil
}

// markStale flags the running load for key. Called with mu held.
func (l *Loading) markStale(key resource.Key) {
	if f, ok := l.running[key]; ok && !f.stale {
		f.stale = true
		f.staleAt = l.epoch
	}
}

// Loads returns how many loads have run.
func (l *Loading) Loads() uint64 {
	return l.loads.Load()
}

// Cache returns the underlying cache.
func (l *Loading) Cache() Cache {
	return l.cache
}

// flightKey quotes each key part so distinct keys never share a flight,
// even when a part contains a separator.
func flightKey(key resource.Key) string {
	return strconv.Quote(key.Namespace) + strconv.Quote(key.Path) + strconv.Quote(key.Variant)
}
