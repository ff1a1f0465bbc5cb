// Package snapshot persists small named blobs (vehicle, tune and
// performance snapshots) behind a key/value interface.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tune-dash.klederson.com/internal/config"
)

// ErrNotFound is returned by Get for a key that has never been stored or has
// been deleted.
var ErrNotFound = errors.New("snapshot: not found")

// Store is a key/value store for snapshot blobs. Implementations are safe for
// concurrent use. Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store selected by cfg.Snapshot.Backend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Snapshot.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendSQLite:
		s, err := OpenSQLite(cfg.Snapshot.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		r, err := OpenRedis(cfg.Snapshot.RedisAddr, cfg.Snapshot.RedisPassword)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("snapshot: unknown backend %q", cfg.Snapshot.Backend)
	}
}

// Memory is an in-process Store. Nothing survives the process.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value.
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
