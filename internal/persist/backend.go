// internal/persist/backend.go
//
// Key/value backends behind the persistence adapter.
// Implementations:
//   - memory: RWMutex-guarded map, for tests and ephemeral runs.
//   - sqlite (sqlite.go): kv_store table in the application database.
//
// Backends only move strings; JSON encoding and caching live in Adapter.

package persist

import (
	"context"
	"sync"
)

// Backend is a string key/value store.
type Backend interface {
	// Get returns the raw value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes or replaces the value for key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Missing keys are not an error.
	Remove(ctx context.Context, key string) error
}

// memory is an in-memory map-based Backend.
type memory struct {
	mu     sync.RWMutex      // guards values
	values map[string]string // keyed by storage key
}

// NewMemoryBackend constructs an empty in-memory Backend.
func NewMemoryBackend() Backend {
	return &memory{values: make(map[string]string)}
}

func (m *memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
