package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/modelbake/resource"
)

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrNilLoader  = errors.New("cache: load function is nil")
)

// Cache stores resolution results by key. A stored nil artifact is a
// negative entry: the key was resolved and produced nothing usable.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get never errors; it returns (nil, false) on miss, expiry or eviction.
// - A negative entry is reported as (nil, true).
// - Delete is idempotent.
type Cache interface {
	// Get retrieves a cached result and marks it as accessed.
	Get(ctx context.Context, key resource.Key) (resource.Artifact, bool)

	// Set stores a result. A nil artifact stores a negative entry.
	Set(ctx context.Context, key resource.Key, artifact resource.Artifact) error

	// Delete removes a cached result.
	Delete(ctx context.Context, key resource.Key) error
}

// ValidateKey checks if a key can be cached.
func ValidateKey(key resource.Key) error {
	if err := key.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return nil
}
