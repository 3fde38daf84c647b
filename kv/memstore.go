package kv

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemStore is the process-local backend.
//
// It is created once in main and lives for the whole process; nothing resets
// it implicitly. Data is lost on restart, so it only suits development and
// single-instance deployments that accept that.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore initialises an empty store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(val), nil
}

func (m *MemStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = slices.Clone(value)
	return nil
}

func (m *MemStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
