package links

import (
	"sync"

	"github.com/jonwraymond/modelbake/resource"
)

// KeySet is a concurrent set of keys. The store uses it as the set of
// known-missing-eligible keys that resolve to the missing sentinel instead
// of nothing.
type KeySet struct {
	mu   sync.RWMutex
	keys map[resource.Key]struct{}
}

// NewKeySet creates a set holding keys.
func NewKeySet(keys ...resource.Key) *KeySet {
	s := &KeySet{keys: make(map[resource.Key]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

// Add inserts keys.
func (s *KeySet) Add(keys ...resource.Key) {
	s.mu.Lock()
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	s.mu.Unlock()
}

// Contains reports whether k is in the set. A nil set contains nothing.
func (s *KeySet) Contains(k resource.Key) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	_, ok := s.keys[k]
	s.mu.RUnlock()
	return ok
}

// Len returns the number of keys.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
