// Package cache is the local key-value store the persistence gateway falls
// back to when the remote is unreachable. Each value is the JSON array of
// one collection.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// ErrCacheMiss is returned by Get for a key that was never written.
var ErrCacheMiss = errors.New("cache miss")

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache closed")

// Cache is a small key-value store. Put writes every entry or none, where
// the backend allows it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, entries map[string][]byte) error
	Close() error
}

// Open returns the backend named in cfg, rooted at dataDir.
func Open(cfg types.CacheConfig, dataDir string) (Cache, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = types.BackendSQLite
	}
	if backend != types.BackendMemory {
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir %s: %w", dataDir, err)
		}
	}
	switch backend {
	case types.BackendSQLite:
		return OpenSQLite(dataDir)
	case types.BackendFile:
		return NewFile(dataDir), nil
	case types.BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, backend)
	}
}

// Memory is a map-backed Cache.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for k, v := range entries {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

// Close implements Cache.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
