package objectstore

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"s3mirror/internal/mirror"
)

// MemoryStore is an in-memory implementation of mirror.ObjectStore.
// It is useful for tests and dry runs. Safe for concurrent use.
type MemoryStore struct {
	name    string
	objects map[string][]byte // key -> content
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:    name,
		objects: make(map[string][]byte),
	}
}

// PutObject stores everything read from r under key.
func (m *MemoryStore) PutObject(_ context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

// PutMarker stores an empty object under key.
func (m *MemoryStore) PutMarker(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = []byte{}
	return nil
}

// DeleteObject removes key. Missing keys are ignored.
func (m *MemoryStore) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Get returns a copy of the object stored under key.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Keys returns all stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(context.Context) error {
	return nil
}

// Compile-time check that MemoryStore implements mirror.ObjectStore
var _ mirror.ObjectStore = (*MemoryStore)(nil)
