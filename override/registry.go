package override

import (
	"sort"
	"sync"

	"github.com/jonwraymond/modelbake/resource"
)

// Registry holds permanent key -> artifact bindings.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Entries are never evicted.
// - Iteration exposes only registered overrides.
type Registry struct {
	mu      sync.RWMutex
	entries map[resource.Key]resource.Artifact
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[resource.Key]resource.Artifact)}
}

// Get returns the artifact registered for key.
func (r *Registry) Get(key resource.Key) (resource.Artifact, bool) {
	r.mu.RLock()
	a, ok := r.entries[key]
	r.mu.RUnlock()
	return a, ok
}

// Put registers artifact for key, replacing any earlier binding.
func (r *Registry) Put(key resource.Key, artifact resource.Artifact) {
	r.mu.Lock()
	r.entries[key] = artifact
	r.mu.Unlock()
}

// Delete removes the binding for key. Idempotent.
func (r *Registry) Delete(key resource.Key) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

// Len returns the number of overrides.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Keys returns the overridden keys sorted by their text form.
func (r *Registry) Keys() []resource.Key {
	r.mu.RLock()
	keys := make([]resource.Key, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Range calls fn for each override in key order until fn returns false.
// fn runs without the registry lock held and may call Put.
func (r *Registry) Range(fn func(resource.Key, resource.Artifact) bool) {
	for _, k := range r.Keys() {
		a, ok := r.Get(k)
		if !ok {
			continue
		}
		if !fn(k, a) {
			return
		}
	}
}
