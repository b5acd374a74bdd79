package registry

import (
	"runtime"
	"sync"
	"weak"
)

type slot[V any] struct {
	value weak.Pointer[V]
	gen   uint64
}

type pruneArg[K any] struct {
	key weak.Pointer[K]
	gen uint64
}

// Weak is a weak associative map from *K identity to *V.
//
// Keys are compared by pointer identity. Values are held through weak
// pointers and the entry is pruned once the value is collected, so the
// registry is never the reason a wrapper stays reachable. A key that is
// collected while registered becomes unreachable by construction: nobody can
// present it to Lookup again.
type Weak[K, V any] struct {
	mu      sync.RWMutex
	entries map[weak.Pointer[K]]slot[V]
	gen     uint64
}

// New creates an empty registry.
func New[K, V any]() *Weak[K, V] {
	return &Weak[K, V]{entries: make(map[weak.Pointer[K]]slot[V])}
}

// Register inserts or replaces the association for key.
func (w *Weak[K, V]) Register(key *K, value *V) {
	if key == nil || value == nil {
		return
	}
	k := weak.Make(key)

	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.entries[k] = slot[V]{value: weak.Make(value), gen: gen}
	w.mu.Unlock()

	runtime.AddCleanup(value, w.prune, pruneArg[K]{key: k, gen: gen})
}

// prune drops the entry registered under arg unless a newer registration
// replaced it.
func (w *Weak[K, V]) prune(arg pruneArg[K]) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.entries[arg.key]; ok && s.gen == arg.gen {
		delete(w.entries, arg.key)
	}
}

// Lookup returns the live value registered for key.
func (w *Weak[K, V]) Lookup(key *K) (*V, bool) {
	if key == nil {
		return nil, false
	}
	k := weak.Make(key)

	w.mu.RLock()
	s, ok := w.entries[k]
	w.mu.RUnlock()
	if !ok {
		return nil, false
	}
	v := s.value.Value()
	if v == nil {
		return nil, false
	}
	return v, true
}

// Deregister removes the association for key, if any.
func (w *Weak[K, V]) Deregister(key *K) {
	if key == nil {
		return
	}
	k := weak.Make(key)

	w.mu.Lock()
	delete(w.entries, k)
	w.mu.Unlock()
}

// Len reports the number of entries, including ones whose value has been
// collected but not yet pruned.
func (w *Weak[K, V]) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}
