package cache

import (
	"context"
	"strings"
	"sync"
)

var _ Store[string] = (*MemCache[string])(nil)

// MemCache keeps entries in a map.
// It never evicts anything, so it is mainly useful for tests and small key spaces.
type MemCache[T any] struct {
	mutex *sync.RWMutex
	db    map[string]Entry[T]
}

func NewMemCache[T any]() *MemCache[T] {
	return &MemCache[T]{
		mutex: &sync.RWMutex{},
		db:    make(map[string]Entry[T]),
	}
}

func (m *MemCache[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	entry, ok := m.db[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *MemCache[T]) Set(ctx context.Context, key string, entry Entry[T]) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.db[key] = entry
	return nil
}

// Purge removes the entry for the given key.
func (m *MemCache[T]) Purge(ctx context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.db, key)
	return nil
}

// AllKeys calls the given callback for each key with the given prefix.
// The callback is called without holding the lock.
func (m *MemCache[T]) AllKeys(ctx context.Context, prefix string, cb func(string)) error {
	m.mutex.RLock()
	var keys []string
	for key := range m.db {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	m.mutex.RUnlock()
	for _, key := range keys {
		cb(key)
	}
	return nil
}

// Len returns the number of stored entries.
func (m *MemCache[T]) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.db)
}
