// Package store is the public artifact lookup.
//
// A Get consults, in order, the override registry, the bounded cache and
// the resolver. Concurrent misses for one key share a single resolution.
// Failed resolutions are cached as negative entries so a broken model is
// not rebuilt on every frame, and keys in the known-missing set get the
// missing sentinel instead of nothing.
package store
