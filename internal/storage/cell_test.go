package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitHydrated(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cell did not hydrate in time")
	}
}

func TestCellHydratesStoredValue(t *testing.T) {
	backend := NewMemoryBackend(0)
	require.NoError(t, backend.SetItem(context.Background(), "counter", "42"))

	cell := NewCell(context.Background(), backend, "counter", 0)
	waitHydrated(t, cell.HydrationDone())

	assert.True(t, cell.Hydrated())
	assert.Equal(t, 42, cell.Get())
}

func TestCellKeepsInitialWhenKeyAbsent(t *testing.T) {
	cell := NewCell(context.Background(), NewMemoryBackend(0), "missing", "fallback")
	waitHydrated(t, cell.HydrationDone())

	assert.True(t, cell.Hydrated())
	assert.Equal(t, "fallback", cell.Get())
}

func TestCellKeepsInitialOnCorruptValue(t *testing.T) {
	backend := NewMemoryBackend(0)
	require.NoError(t, backend.SetItem(context.Background(), "corrupt", "{not json"))

	cell := NewCell(context.Background(), backend, "corrupt", []int{1, 2, 3})
	waitHydrated(t, cell.HydrationDone())

	assert.True(t, cell.Hydrated())
	assert.Equal(t, []int{1, 2, 3}, cell.Get())
}

func TestCellUpdateIsReadModifyWrite(t *testing.T) {
	backend := NewMemoryBackend(0)
	cell := NewCell(context.Background(), backend, "counter", 0)
	waitHydrated(t, cell.HydrationDone())

	for i := 0; i < 10; i++ {
		cell.Update(func(prev int) int { return prev + 1 })
	}

	assert.Equal(t, 10, cell.Get())

	raw, err := backend.GetItem(context.Background(), "counter")
	require.NoError(t, err)
	assert.Equal(t, "10", raw)
}

func TestCellWriteFailureKeepsMemoryState(t *testing.T) {
	// A one-byte quota rejects every serialized write.
	backend := NewMemoryBackend(1)
	cell := NewCell(context.Background(), backend, "quota", 0)
	waitHydrated(t, cell.HydrationDone())

	cell.Set(12345)

	assert.Equal(t, 12345, cell.Get())
	_, err := backend.GetItem(context.Background(), "quota")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCellOnHydratedRunsOnceInOrder(t *testing.T) {
	backend := NewMemoryBackend(0)
	cell := NewCell(context.Background(), backend, "order", 0)

	var order []int
	ready := make(chan struct{})
	cell.OnHydrated(func() { order = append(order, 1) })
	cell.OnHydrated(func() { order = append(order, 2); close(ready) })

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("callbacks did not run")
	}
	assert.Equal(t, []int{1, 2}, order)

	// Late registration runs synchronously.
	ran := false
	cell.OnHydrated(func() { ran = true })
	assert.True(t, ran)
}

func TestFileBackendRoundTrip(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = backend.GetItem(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, backend.SetItem(ctx, "greeting", `"hello"`))
	val, err := backend.GetItem(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, val)
}
