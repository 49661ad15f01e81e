package ratelimit

import (
	"context"
	"errors"
)

// ErrStoreClosed is returned by store operations after Close.
var ErrStoreClosed = errors.New("caller state store is closed")

// Mutation atomically transforms a caller's state inside StateStore.Update.
type Mutation func(CallerState) CallerState

// StateStore maps a caller key to its state (strategy pattern: memory or
// Redis).
//
// Concurrency contract: Update calls for the same key are mutually
// exclusive; updates to different keys must not block each other. Absence is
// a valid state (first-ever request for a key), not an error.
type StateStore interface {
	// Get returns the current state and whether any state exists.
	Get(ctx context.Context, key string) (CallerState, bool, error)

	// Update atomically reads, applies fn, and writes back the state for
	// key, returning the written state.
	Update(ctx context.Context, key string, fn Mutation) (CallerState, error)

	// Clear removes the state entirely.
	Clear(ctx context.Context, key string) error

	// Close releases store resources.
	Close() error
}

// StoreType selects a StateStore implementation.
type StoreType string

const (
	// StoreTypeMemory keeps caller state in an in-process table.
	StoreTypeMemory StoreType = "memory"

	// StoreTypeRedis keeps caller state in Redis.
	StoreTypeRedis StoreType = "redis"
)
