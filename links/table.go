package links

import (
	"sync"

	"github.com/jonwraymond/modelbake/resource"
)

// Table maps primary keys to the alternate keys they were learned to
// resolve through.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Entries are hints: callers must re-validate a learned link before
// trusting it.
// - The table only grows; Learn overwrites an existing link.
type Table struct {
	mu    sync.RWMutex
	links map[resource.Key]resource.Key
}

// NewTable creates an empty link table.
func NewTable() *Table {
	return &Table{links: make(map[resource.Key]resource.Key)}
}

// Lookup returns the learned alternate for primary.
func (t *Table) Lookup(primary resource.Key) (resource.Key, bool) {
	t.mu.RLock()
	alt, ok := t.links[primary]
	t.mu.RUnlock()
	return alt, ok
}

// Learn records primary -> alternate. It reports whether the table changed.
func (t *Table) Learn(primary, alternate resource.Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.links[primary]; ok && existing == alternate {
		return false
	}
	t.links[primary] = alternate
	return true
}

// Len returns the number of learned links.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.links)
}

// Snapshot returns a copy of the table.
func (t *Table) Snapshot() map[resource.Key]resource.Key {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[resource.Key]resource.Key, len(t.links))
	for k, v := range t.links {
		out[k] = v
	}
	return out
}
