// Package registry provides a fixed-capacity associative array.
package registry

import "errors"

var (
	// ErrFull indicates no free slot is left.
	ErrFull = errors.New("registry full")
	// ErrNotFound indicates the key or index is not present.
	ErrNotFound = errors.New("not found")
)

// Registry maps keys to values using two parallel arrays allocated once.
// Lookup is a linear scan and removal compacts the tail, which is fine
// for the handful of entries it is meant to hold.
type Registry[K comparable, V any] struct {
	keys   []K
	values []V
	count  int
}

// New creates a Registry with the given capacity.
func New[K comparable, V any](capacity int) *Registry[K, V] {
	r := &Registry[K, V]{}
	r.Init(capacity)
	return r
}

// Init (re)initializes the registry with the given capacity.
// Existing entries are dropped.
func (r *Registry[K, V]) Init(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	r.keys = make([]K, capacity)
	r.values = make([]V, capacity)
	r.count = 0
}

// Len returns the number of entries.
func (r *Registry[K, V]) Len() int {
	return r.count
}

// Cap returns the capacity.
func (r *Registry[K, V]) Cap() int {
	return len(r.keys)
}

// Free returns the number of free slots.
func (r *Registry[K, V]) Free() int {
	return len(r.keys) - r.count
}

// IndexOf returns the index of key, or -1.
func (r *Registry[K, V]) IndexOf(key K) int {
	for i := 0; i < r.count; i++ {
		if r.keys[i] == key {
			return i
		}
	}
	return -1
}

// At returns the entry at index. It panics if index is out of range.
func (r *Registry[K, V]) At(index int) (K, V) {
	if index < 0 || index >= r.count {
		panic("registry: index out of range")
	}
	return r.keys[index], r.values[index]
}

// Get looks up the value of key.
func (r *Registry[K, V]) Get(key K) (v V, ok bool) {
	if i := r.IndexOf(key); i >= 0 {
		return r.values[i], true
	}
	return
}

// Add inserts key at the tail, or replaces the value in place if key is
// already present. A full registry rejects the call either way.
func (r *Registry[K, V]) Add(key K, value V) error {
	if r.count >= len(r.keys) {
		return ErrFull
	}
	i := r.IndexOf(key)
	if i < 0 {
		i = r.count
		r.count++
	}
	r.keys[i], r.values[i] = key, value
	return nil
}

// Remove removes key.
func (r *Registry[K, V]) Remove(key K) error {
	i := r.IndexOf(key)
	if i < 0 {
		return ErrNotFound
	}
	return r.RemoveAt(i)
}

// RemoveAt removes the entry at index, shifting the following entries left.
func (r *Registry[K, V]) RemoveAt(index int) error {
	if index < 0 || index >= r.count {
		return ErrNotFound
	}
	copy(r.keys[index:r.count], r.keys[index+1:r.count])
	copy(r.values[index:r.count], r.values[index+1:r.count])
	r.count--
	var zk K
	var zv V
	r.keys[r.count], r.values[r.count] = zk, zv
	return nil
}

// RemoveAll removes every entry.
func (r *Registry[K, V]) RemoveAll() {
	var zk K
	var zv V
	for i := 0; i < r.count; i++ {
		r.keys[i], r.values[i] = zk, zv
	}
	r.count = 0
}
