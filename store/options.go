package store

import (
	"github.com/jonwraymond/modelbake/cache"
	"github.com/jonwraymond/modelbake/links"
	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/override"
	"github.com/jonwraymond/modelbake/resource"
)

// Option configures a Store.
type Option func(*Store)

// WithOverrides shares an override registry. Pass the same registry to the
// resolver so both short-circuit the same keys.
func WithOverrides(reg *override.Registry) Option {
	return func(s *Store) {
		if reg != nil {
			s.overrides = reg
		}
	}
}

// WithPolicy sets the cache eviction policy.
func WithPolicy(p cache.Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// WithCacheOptions passes options to the memory cache.
func WithCacheOptions(opts ...cache.MemoryOption) Option {
	return func(s *Store) {
		s.cacheOpts = append(s.cacheOpts, opts...)
	}
}

// WithMissing substitutes artifact for failed lookups of keys in keys.
func WithMissing(artifact resource.Artifact, keys *links.KeySet) Option {
	return func(s *Store) {
		s.missing = artifact
		s.missingKeys = keys
	}
}

// WithMiddleware traces, measures and logs every resolution and records
// cache lookups and evictions on the middleware's metrics.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(s *Store) {
		s.middleware = mw
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
