package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// Cell wraps a single Backend key as a typed value with a hydration flag.
//
// On construction the in-memory value equals the provided initial value and
// the cell is not hydrated. Hydration runs asynchronously: the backend is
// read once, and if the stored value parses it replaces the initial value.
// Either way Hydrated flips to true exactly once. Reads before that
// transition are not authoritative; callers that mutate persistence-derived
// state must gate on Hydrated or register an OnHydrated callback.
type Cell[T any] struct {
	backend Backend
	key     string

	mu        sync.Mutex
	value     T
	hydrated  bool
	callbacks []func()

	done chan struct{}
}

// NewCell constructs the cell and starts hydration in the background.
func NewCell[T any](ctx context.Context, backend Backend, key string, initial T) *Cell[T] {
	c := &Cell[T]{
		backend: backend,
		key:     key,
		value:   initial,
		done:    make(chan struct{}),
	}
	go c.hydrate(ctx)
	return c
}

func (c *Cell[T]) hydrate(ctx context.Context) {
	raw, err := c.backend.GetItem(ctx, c.key)

	var parsed T
	ok := false
	switch {
	case err == nil:
		if uerr := json.Unmarshal([]byte(raw), &parsed); uerr != nil {
			logrus.WithField("key", c.key).Warnf("discarding unreadable stored value: %v", uerr)
		} else {
			ok = true
		}
	case errors.Is(err, ErrNotFound):
		// First run; keep the initial value.
	default:
		logrus.WithField("key", c.key).Warnf("storage read failed: %v", err)
	}

	c.mu.Lock()
	if ok {
		c.value = parsed
	}
	c.hydrated = true
	cbs := c.callbacks
	c.callbacks = nil
	c.mu.Unlock()

	// Callbacks run before done closes, so anyone woken by HydrationDone
	// observes their effects (e.g. a replayed pending queue).
	for _, cb := range cbs {
		cb()
	}
	close(c.done)
}

// Get returns the current in-memory value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Hydrated reports whether the in-memory value reflects durable state.
func (c *Cell[T]) Hydrated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hydrated
}

// HydrationDone closes once hydration has completed.
func (c *Cell[T]) HydrationDone() <-chan struct{} {
	return c.done
}

// OnHydrated registers fn to run once hydration completes. Callbacks run in
// registration order, outside the cell lock. If the cell is already
// hydrated, fn runs synchronously.
func (c *Cell[T]) OnHydrated(fn func()) {
	c.mu.Lock()
	if !c.hydrated {
		c.callbacks = append(c.callbacks, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn()
}

// Set replaces the value and persists it.
func (c *Cell[T]) Set(v T) {
	c.Update(func(T) T { return v })
}

// Update applies fn to the current value under the cell lock, so rapid
// successive calls observe each other's results. The new value is written
// to the backend; a failed write is logged and otherwise ignored, leaving
// the in-memory value updated and durable state lagging.
func (c *Cell[T]) Update(fn func(prev T) T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = fn(c.value)

	data, err := json.Marshal(c.value)
	if err != nil {
		logrus.WithField("key", c.key).Warnf("failed to serialize value: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := c.backend.SetItem(ctx, c.key, string(data)); err != nil {
		logrus.WithField("key", c.key).Warnf("storage write failed: %v", err)
	}
}
