package storage

import (
	"context"
	"sync"
)

// MemoryBackend is an in-memory Backend, mainly for tests and ephemeral runs.
// A positive maxValueBytes caps the size of any single value, modeling the
// quota failures a real origin-scoped store can produce.
type MemoryBackend struct {
	mu            sync.RWMutex
	items         map[string]string
	maxValueBytes int
}

// NewMemoryBackend creates an empty backend. maxValueBytes <= 0 means unlimited.
func NewMemoryBackend(maxValueBytes int) *MemoryBackend {
	return &MemoryBackend{
		items:         make(map[string]string),
		maxValueBytes: maxValueBytes,
	}
}

func (b *MemoryBackend) GetItem(_ context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	val, ok := b.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (b *MemoryBackend) SetItem(_ context.Context, key, value string) error {
	if b.maxValueBytes > 0 && len(value) > b.maxValueBytes {
		return ErrQuotaExceeded
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[key] = value
	return nil
}
