package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key has never been written.
	ErrNotFound = errors.New("storage: key not found")

	// ErrQuotaExceeded is returned when a write would exceed the backend's capacity.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Backend abstracts an origin-scoped persistent key-value slot store.
// Values are opaque strings; callers own serialization. Writes are
// capacity-bounded and may fail with ErrQuotaExceeded.
type Backend interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
}
