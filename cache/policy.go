package cache

import (
	"errors"
	"fmt"
	"time"
)

// Defaults for the bounded memory cache.
const (
	DefaultExpireAfterAccess = 3 * time.Minute
	DefaultMaxEntries        = 1000
	DefaultSweepInterval     = time.Minute
)

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("cache: invalid policy")

// Policy configures eviction.
type Policy struct {
	// ExpireAfterAccess drops entries not read or written for this long.
	// If zero, entries never expire by time.
	ExpireAfterAccess time.Duration

	// MaxEntries bounds the cache; the least recently used entry is evicted
	// first. Zero means DefaultMaxEntries.
	MaxEntries int

	// SweepInterval is how often the janitor removes expired entries and
	// polls memory pressure.
	SweepInterval time.Duration
}

// DefaultPolicy returns the default eviction policy.
// ExpireAfterAccess: 3 minutes, MaxEntries: 1000, SweepInterval: 1 minute.
func DefaultPolicy() Policy {
	return Policy{
		ExpireAfterAccess: DefaultExpireAfterAccess,
		MaxEntries:        DefaultMaxEntries,
		SweepInterval:     DefaultSweepInterval,
	}
}

// Validate rejects negative settings.
func (p Policy) Validate() error {
	switch {
	case p.ExpireAfterAccess < 0:
		return fmt.Errorf("%w: expire_after_access must not be negative", ErrInvalidPolicy)
	case p.MaxEntries < 0:
		return fmt.Errorf("%w: max_entries must not be negative", ErrInvalidPolicy)
	case p.SweepInterval < 0:
		return fmt.Errorf("%w: sweep_interval must not be negative", ErrInvalidPolicy)
	}
	return nil
}

// Capacity returns the effective entry bound.
func (p Policy) Capacity() int {
	if p.MaxEntries <= 0 {
		return DefaultMaxEntries
	}
	return p.MaxEntries
}

// Expired reports whether an entry last accessed at last is expired at now.
func (p Policy) Expired(last, now time.Time) bool {
	return p.ExpireAfterAccess > 0 && now.Sub(last) > p.ExpireAfterAccess
}

func (p Policy) sweepInterval() time.Duration {
	if p.SweepInterval <= 0 {
		return DefaultSweepInterval
	}
	return p.SweepInterval
}
