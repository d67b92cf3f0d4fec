package domain

import "sync"

// MemoryStore is a mutex-guarded map of entity copies keyed by uuid. Reads
// return copies in insertion order so callers never share state with the
// store.
type MemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
	clone func(T) T
}

// NewMemoryStore returns an empty store. clone must return a copy that is
// safe to hand out, with references to other entities reduced to stubs.
func NewMemoryStore[T any](clone func(T) T) *MemoryStore[T] {
	return &MemoryStore[T]{items: make(map[string]T), clone: clone}
}

// Get returns a copy of the entity, or ErrNotFound.
func (s *MemoryStore[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return s.clone(v), nil
}

// Put inserts or replaces the entity under id.
func (s *MemoryStore[T]) Put(id string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = s.clone(v)
}

// Delete removes id; false when it was absent.
func (s *MemoryStore[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Filter returns copies of every entity keep accepts, in insertion order.
func (s *MemoryStore[T]) Filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, id := range s.order {
		if v := s.items[id]; keep(v) {
			out = append(out, s.clone(v))
		}
	}
	return out
}

// Count returns how many entities match.
func (s *MemoryStore[T]) Count(match func(T) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.items {
		if match(v) {
			n++
		}
	}
	return n
}

// Len returns the number of stored entities.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
