package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps caller state in Redis as JSON values with a TTL covering
// the window and any active block.
//
// Per-key mutual exclusion is provided by in-process locks, matching the
// engine's contract of one shared store instance per process. Keys expire on
// their own once a caller goes quiet, so no sweeping is needed.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	locks     keyedMutex
}

// NewRedisStore creates a Redis-backed caller state store.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "apiguard:caller:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the caller state, if any.
func (s *RedisStore) Get(ctx context.Context, key string) (CallerState, bool, error) {
	return s.fetch(ctx, s.buildKey(key))
}

// Update applies fn under the key's lock and writes the result back with a
// refreshed TTL.
func (s *RedisStore) Update(ctx context.Context, key string, fn Mutation) (CallerState, error) {
	unlock := s.locks.lock(key)
	defer unlock()

	fullKey := s.buildKey(key)

	state, _, err := s.fetch(ctx, fullKey)
	if err != nil {
		return CallerState{}, err
	}

	state = fn(state)

	if state.empty() {
		if err := s.client.Del(ctx, fullKey).Err(); err != nil {
			return CallerState{}, fmt.Errorf("redis del failed: %w", err)
		}
		return state, nil
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return CallerState{}, fmt.Errorf("marshal caller state failed: %w", err)
	}

	if err := s.client.Set(ctx, fullKey, payload, s.retention(state)).Err(); err != nil {
		return CallerState{}, fmt.Errorf("redis set failed: %w", err)
	}

	return state, nil
}

// Clear removes the state entirely.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	unlock := s.locks.lock(key)
	defer unlock()

	return s.client.Del(ctx, s.buildKey(key)).Err()
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) fetch(ctx context.Context, fullKey string) (CallerState, bool, error) {
	payload, err := s.client.Get(ctx, fullKey).Result()
	if err == redis.Nil {
		return CallerState{}, false, nil
	}
	if err != nil {
		return CallerState{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var state CallerState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return CallerState{}, false, fmt.Errorf("unmarshal caller state failed: %w", err)
	}
	return state, true, nil
}

// retention returns a TTL long enough to outlive the window and any block.
func (s *RedisStore) retention(state CallerState) time.Duration {
	ttl := WindowLength
	if state.Blocked() {
		if until := time.Until(state.BlockedUntil); until > ttl {
			ttl = until
		}
	}
	// Slack so a key never lapses mid-decision.
	return ttl + time.Second
}

func (s *RedisStore) buildKey(key string) string {
	return s.keyPrefix + key
}

// keyedMutex hands out one mutex per key, created on demand.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, exists := k.locks[key]
	if !exists {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
