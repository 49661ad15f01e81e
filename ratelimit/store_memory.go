package ratelimit

import (
	"context"
	"sync"
)

// memoryStore is the in-process StateStore. Each caller key owns its own
// mutex, so decisions for different callers never block each other; the
// outer lock only guards the map itself.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	closed  bool
}

type memoryEntry struct {
	mu    sync.Mutex
	state CallerState
}

// NewMemoryStore creates an in-process caller state store.
func NewMemoryStore() StateStore {
	return &memoryStore{
		entries: make(map[string]*memoryEntry),
	}
}

// Get returns the caller state, if any.
func (s *memoryStore) Get(ctx context.Context, key string) (CallerState, bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return CallerState{}, false, ErrStoreClosed
	}
	entry, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		return CallerState{}, false, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state.Clone(), true, nil
}

// Update applies fn under the key's lock and returns the written state.
func (s *memoryStore) Update(ctx context.Context, key string, fn Mutation) (CallerState, error) {
	entry, err := s.getOrCreateEntry(key)
	if err != nil {
		return CallerState{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.state = fn(entry.state.Clone())
	return entry.state.Clone(), nil
}

// Clear removes the state entirely.
func (s *memoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	delete(s.entries, key)
	return nil
}

// Close releases the table.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.entries = nil
	return nil
}

func (s *memoryStore) getOrCreateEntry(key string) (*memoryEntry, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	if entry, exists := s.entries[key]; exists {
		s.mu.RUnlock()
		return entry, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	// Double check after taking the write lock.
	if entry, exists := s.entries[key]; exists {
		return entry, nil
	}

	entry := &memoryEntry{}
	s.entries[key] = entry
	return entry, nil
}
