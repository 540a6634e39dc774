package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps encoded documents in memory. Documents go through JSON
// like the SQL store so callers never share memory with it.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, collection string, v any) error {
	m.mu.RLock()
	body, ok := m.docs[collection]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, collection, err)
	}
	return nil
}

func (m *MemoryStore) Save(_ context.Context, collection string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	m.mu.Lock()
	m.docs[collection] = body
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
