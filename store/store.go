package store

import (
	"context"

	"github.com/jonwraymond/modelbake/cache"
	"github.com/jonwraymond/modelbake/health"
	"github.com/jonwraymond/modelbake/links"
	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/override"
	"github.com/jonwraymond/modelbake/resource"
)

// Stats is a point-in-time view of the store.
type Stats struct {
	cache.Stats
	Overrides int
}

// Store is the public artifact lookup. Lookups consult the override
// registry, then the single-flight cache, and fall back to the resolver on
// a miss.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - An overridden key is never resolved and always returns its override,
//     even when a resolution for it was in flight when the override was put.
//   - Failed resolutions are cached negatively until evicted.
//   - Keys and Range expose overrides only, never cache contents.
type Store struct {
	overrides   *override.Registry
	memory      *cache.MemoryCache
	loading     *cache.Loading
	policy      cache.Policy
	cacheOpts   []cache.MemoryOption
	missing     resource.Artifact
	missingKeys *links.KeySet
	middleware  *observe.Middleware
	metrics     observe.Metrics
	logger      observe.Logger
}

// New creates a store that resolves misses with resolve.
func New(resolve observe.ResolveFunc, opts ...Option) (*Store, error) {
	if resolve == nil {
		return nil, ErrNilResolve
	}

	s := &Store{
		overrides: override.NewRegistry(),
		policy:    cache.DefaultPolicy(),
		metrics:   observe.NoopMetrics(),
		logger:    observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}

	if s.middleware != nil {
		resolve = s.middleware.Wrap(resolve)
		s.metrics = s.middleware.Metrics()
	}

	memOpts := append([]cache.MemoryOption{cache.WithMetrics(s.metrics)}, s.cacheOpts...)
	s.memory = cache.NewMemoryCache(s.policy, memOpts...)

	loading, err := cache.NewLoading(s.memory, cache.LoadFunc(resolve), cache.WithLookupMetrics(s.metrics))
	if err != nil {
		return nil, err
	}
	s.loading = loading
	return s, nil
}

// Get returns the artifact for key, resolving it on a miss. A key that
// resolves to nothing yields the missing sentinel when it is in the
// known-missing set, and (nil, false) otherwise.
func (s *Store) Get(ctx context.Context, key resource.Key) (resource.Artifact, bool) {
	if art, ok := s.overrides.Get(key); ok {
		s.metrics.RecordLookup(ctx, observe.LookupOverride)
		return art, true
	}

	art, ok := s.loading.Get(ctx, key)

	// An override put while the load was in flight still wins.
	if o, overridden := s.overrides.Get(key); overridden {
		return o, true
	}
	if ok {
		return art, true
	}
	if s.missing != nil && s.missingKeys.Contains(key) {
		s.logger.WithKey(key).Debug(ctx, "substituting missing artifact")
		return s.missing, true
	}
	return nil, false
}

// GetIfPresent returns the override or a cached positive result for key
// without resolving. Expired, evicted and negative entries are absent.
func (s *Store) GetIfPresent(ctx context.Context, key resource.Key) (resource.Artifact, bool) {
	if art, ok := s.overrides.Get(key); ok {
		return art, true
	}
	return s.loading.GetIfPresent(ctx, key)
}

// PutPermanent registers artifact for key and drops any cached result.
func (s *Store) PutPermanent(key resource.Key, artifact resource.Artifact) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if artifact == nil {
		return ErrNilArtifact
	}
	s.overrides.Put(key, artifact)
	return s.loading.Invalidate(context.Background(), key)
}

// Invalidate drops the cached result for key. Overrides are kept.
func (s *Store) Invalidate(key resource.Key) error {
	return s.loading.Invalidate(context.Background(), key)
}

// InvalidateResource drops cached results for every variant of
// namespace:path and returns how many were dropped. Resolutions of those
// variants still in flight are not cached.
func (s *Store) InvalidateResource(namespace, path string) int {
	target := resource.NewKey(namespace, path)
	// The loading cache always wraps a MemoryCache, which deletes by predicate.
	n, _ := s.loading.InvalidateFunc(context.Background(), func(k resource.Key) bool {
		return k.SameResource(target)
	})
	return n
}

// Keys returns the overridden keys, sorted.
func (s *Store) Keys() []resource.Key {
	return s.overrides.Keys()
}

// Range calls fn for each override until fn returns false.
func (s *Store) Range(fn func(resource.Key, resource.Artifact) bool) {
	s.overrides.Range(fn)
}

// Overrides returns the registry backing PutPermanent.
func (s *Store) Overrides() *override.Registry {
	return s.overrides
}

// Start runs the cache janitor until ctx is done.
func (s *Store) Start(ctx context.Context) {
	s.memory.Start(ctx)
}

// Shrink drops the least recently used half of the cache.
func (s *Store) Shrink() int {
	return s.memory.Shrink()
}

// Stats returns cache counters and the override count.
func (s *Store) Stats() Stats {
	st := s.memory.Stats()
	st.Loads = s.loading.Loads()
	return Stats{Stats: st, Overrides: s.overrides.Len()}
}

// Checker reports the cache as degraded once it is full.
func (s *Store) Checker() health.Checker {
	return health.NewCapacityChecker("artifact_cache", 1, func() (int, int) {
		st := s.memory.Stats()
		return st.Entries, st.Capacity
	})
}
