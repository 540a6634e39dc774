package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Collection is the in-memory working copy of one persisted document.
// It is loaded wholesale at startup and written back wholesale after
// every mutation. Writes are serialized so the store never receives an
// older snapshot after a newer one.
type Collection[T any] struct {
	name  string
	store Store

	mu    sync.RWMutex
	items map[string]T
}

// NewCollection creates an empty collection persisted under name
func NewCollection[T any](store Store, name string) *Collection[T] {
	return &Collection[T]{
		name:  name,
		store: store,
		items: make(map[string]T),
	}
}

// Load replaces the working copy with the persisted document. A document
// that cannot be decoded is logged and replaced by an empty collection.
func (c *Collection[T]) Load(ctx context.Context) error {
	items := make(map[string]T)
	if err := c.store.Load(ctx, c.name, &items); err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return err
		}
		log.Printf("Warning: %v, starting with empty %s", err, c.name)
		items = nil
	}
	if items == nil {
		items = make(map[string]T)
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// Get returns the value stored under id. Reference types must not be
// mutated by the caller; use Update instead.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	return v, ok
}

// View calls fn with the value stored under id while holding the read lock
func (c *Collection[T]) View(id string, fn func(v T, ok bool)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	fn(v, ok)
}

// Len returns the number of entries
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Put stores v under id and persists the collection
func (c *Collection[T]) Put(ctx context.Context, id string, v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = v
	return c.saveLocked(ctx)
}

// PutIf stores v only when match accepts the current value (ok is false
// when id is absent). It reports whether v was stored.
func (c *Collection[T]) PutIf(ctx context.Context, id string, v T, match func(cur T, ok bool) bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.items[id]
	if !match(cur, ok) {
		return false, nil
	}
	c.items[id] = v
	return true, c.saveLocked(ctx)
}

// Update calls fn with the current value (zero value if absent) and keeps
// the result. The collection is persisted only if fn returns true.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(v *T) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.items[id]
	if !fn(&v) {
		return nil
	}
	c.items[id] = v
	return c.saveLocked(ctx)
}

// Delete removes id and persists the collection. It reports whether id existed.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return false, nil
	}
	delete(c.items, id)
	return true, c.saveLocked(ctx)
}

// DeleteIf removes id only when match accepts the stored value
func (c *Collection[T]) DeleteIf(ctx context.Context, id string, match func(v T) bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[id]
	if !ok || !match(v) {
		return false, nil
	}
	delete(c.items, id)
	return true, c.saveLocked(ctx)
}

func (c *Collection[T]) saveLocked(ctx context.Context) error {
	if err := c.store.Save(ctx, c.name, c.items); err != nil {
		return fmt.Errorf("persist %s: %w", c.name, err)
	}
	return nil
}
