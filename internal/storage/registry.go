package storage

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("not found")

// Registry keeps live per-view values (booking sessions, driver queues) in
// memory. Values are replaced whole; nothing here is persisted.
type Registry[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

func (r *Registry[T]) Put(id string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = v
}

func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return v, nil
}

// Update applies fn to the stored value under the write lock and stores the
// result only when fn succeeds. It returns whatever fn returned.
func (r *Registry[T]) Update(id string, fn func(T) (T, error)) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return next, err
	}
	r.items[id] = next
	return next, nil
}

// Remove deletes id and returns the value it held. Of several concurrent
// callers for the same id exactly one sees ok.
func (r *Registry[T]) Remove(id string) (v T, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok = r.items[id]
	if ok {
		delete(r.items, id)
	}
	return v, ok
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
