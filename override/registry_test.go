package override

import (
	"testing"

	"github.com/jonwraymond/modelbake/resource"
)

func TestRegistry_PutGetDelete(t *testing.T) {
	r := NewRegistry()
	k := resource.NewVariantKey("ns", "door", "open")

	if _, ok := r.Get(k); ok {
		t.Fatal("Get on empty registry should miss")
	}

	r.Put(k, "first")
	r.Put(k, "second")

	got, ok := r.Get(k)
	if !ok || got != "second" {
		t.Errorf("Get() = %v, %v; want second, true", got, ok)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	r.Delete(k)
	r.Delete(k)
	if _, ok := r.Get(k); ok {
		t.Error("Get after Delete should miss")
	}
}

func TestRegistry_KeysSorted(t *testing.T) {
	r := NewRegistry()
	r.Put(resource.NewKey("ns", "c"), 3)
	r.Put(resource.NewKey("ns", "a"), 1)
	r.Put(resource.NewKey("ns", "b"), 2)

	keys := r.Keys()
	want := []string{"ns:a", "ns:b", "ns:c"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() len = %d, want %d", len(keys), len(want))
	}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Errorf("Keys()[%d] = %s, want %s", i, k, want[i])
		}
	}
}

func TestRegistry_Range(t *testing.T) {
	r := NewRegistry()
	r.Put(resource.NewKey("ns", "a"), 1)
	r.Put(resource.NewKey("ns", "b"), 2)
	r.Put(resource.NewKey("ns", "c"), 3)

	sum := 0
	r.Range(func(_ resource.Key, a resource.Artifact) bool {
		sum += a.(int)
		return true
	})
	if sum != 6 {
		t.Errorf("sum = %d, want 6", sum)
	}

	visited := 0
	r.Range(func(resource.Key, resource.Artifact) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("Range should stop after fn returns false, visited %d", visited)
	}
}
