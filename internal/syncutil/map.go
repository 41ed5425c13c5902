// Package syncutil provides small concurrency-safe containers.
package syncutil

import (
	"iter"
	"sync"
)

// Map is a wrapper around a map[K]V that is safe for concurrent use by
// multiple goroutines.
type Map[K comparable, V any] struct {
	m map[K]V
	sync.Mutex
}

// Make is the concurrency-safe equivalent of make(map[K]V).
func (m *Map[K, V]) Make() {
	m.Lock()
	m.m = make(map[K]V)
	m.Unlock()
}

// Store sets the value for a key.
func (m *Map[K, V]) Store(k K, v V) {
	m.Lock()
	m.m[k] = v
	m.Unlock()
}

// Load returns the value stored in the map for a key, or the zero value
// of V if no value is present. The ok result indicates whether value was
// found in the map.
func (m *Map[K, V]) Load(k K) (v V, ok bool) {
	m.Lock()
	v, ok = m.m[k]
	m.Unlock()
	return
}

// Iter locks m and returns an iterator over entries of m.
// Once iteration is complete, m will be unlocked.
func (m *Map[K, V]) Iter() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.Lock()
		defer m.Unlock()
		for k, v := range m.m {
			if !yield(k, v) {
				return
			}
		}
	}
}
