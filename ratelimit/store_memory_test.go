package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, exists, err := store.Get(context.Background(), "alice|1.2.3.4")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStore_UpdateThenGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	written, err := store.Update(ctx, "alice|1.2.3.4", func(state CallerState) CallerState {
		state.Timestamps = append(state.Timestamps, now)
		return state
	})
	require.NoError(t, err)
	assert.Len(t, written.Timestamps, 1)

	got, exists, err := store.Get(ctx, "alice|1.2.3.4")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, written, got)
}

// The state handed to the mutation and the state handed back to callers are
// copies; mutating them afterwards must not leak into the store.
func TestMemoryStore_NoAliasing(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	written, err := store.Update(ctx, "k", func(state CallerState) CallerState {
		state.Timestamps = append(state.Timestamps, now, now, now)
		return state
	})
	require.NoError(t, err)

	written.Timestamps[0] = now.Add(time.Hour)

	got, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, now, got.Timestamps[0])
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Update(ctx, "k", func(state CallerState) CallerState {
		state.BlockedUntil = time.Now().Add(time.Minute)
		return state
	})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "k"))

	_, exists, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStore_ClosedReturnsError(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())
	ctx := context.Background()

	_, _, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = store.Update(ctx, "k", func(s CallerState) CallerState { return s })
	assert.ErrorIs(t, err, ErrStoreClosed)

	assert.ErrorIs(t, store.Clear(ctx, "k"), ErrStoreClosed)
}

// Concurrent mutations on one key are serialized: every append survives.
func TestMemoryStore_ConcurrentUpdates(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	const writers = 100
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "shared", func(state CallerState) CallerState {
				state.Timestamps = append(state.Timestamps, time.Now())
				return state
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, exists, err := store.Get(ctx, "shared")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Len(t, got.Timestamps, writers)
}
