package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "test:caller:")
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, exists, err := store.Get(context.Background(), "alice|1.2.3.4")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStore_UpdateRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	written, err := store.Update(ctx, "alice|1.2.3.4", func(state CallerState) CallerState {
		state.Timestamps = append(state.Timestamps, now)
		state.BlockedUntil = now.Add(20 * time.Second)
		return state
	})
	require.NoError(t, err)

	got, exists, err := store.Get(ctx, "alice|1.2.3.4")
	require.NoError(t, err)
	require.True(t, exists)
	require.Len(t, got.Timestamps, 1)
	assert.True(t, got.Timestamps[0].Equal(written.Timestamps[0]))
	assert.True(t, got.BlockedUntil.Equal(written.BlockedUntil))
}

// Mutating a state down to nothing deletes the key instead of storing an
// empty record.
func TestRedisStore_EmptyStateDeletesKey(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "k", func(state CallerState) CallerState {
		state.Timestamps = append(state.Timestamps, time.Now())
		return state
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:caller:k"))

	_, err = store.Update(ctx, "k", func(state CallerState) CallerState {
		return CallerState{}
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:caller:k"))
}

func TestRedisStore_TTLCoversWindowAndBlock(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "windowed", func(state CallerState) CallerState {
		state.Timestamps = append(state.Timestamps, time.Now())
		return state
	})
	require.NoError(t, err)
	ttl := mr.TTL("test:caller:windowed")
	assert.Greater(t, ttl, WindowLength-time.Second)

	_, err = store.Update(ctx, "blocked", func(state CallerState) CallerState {
		state.Timestamps = append(state.Timestamps, time.Now())
		state.BlockedUntil = time.Now().Add(5 * time.Minute)
		return state
	})
	require.NoError(t, err)
	ttl = mr.TTL("test:caller:blocked")
	assert.Greater(t, ttl, WindowLength)
}

func TestRedisStore_Clear(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "k", func(state CallerState) CallerState {
		state.Timestamps = append(state.Timestamps, time.Now())
		return state
	})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "k"))
	assert.False(t, mr.Exists("test:caller:k"))
}

func TestRedisStore_ConcurrentUpdates(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	const writers = 50
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

func TestRedisStore_ServerDownReturnsError(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	_, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)

	_, err = store.Update(context.Background(), "k", func(s CallerState) CallerState { return s })
	assert.Error(t, err)
}
