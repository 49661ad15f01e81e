package audit

import (
	"context"
	"sync"
)

// Sink persists audit entries.
type Sink interface {
	// Write records one entry.
	Write(ctx context.Context, entry Entry) error

	// Close flushes and releases the sink.
	Close() error
}

// MemorySink collects entries in memory, used in tests and as a recent-entry
// buffer for the admin API.
type MemorySink struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

// NewMemorySink creates a sink retaining at most limit entries; zero or
// negative means unbounded.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

// Write records one entry, evicting the oldest when over the limit.
func (s *MemorySink) Write(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = s.entries[len(s.entries)-s.limit:]
	}
	return nil
}

// Entries returns a copy of the retained entries, oldest first.
func (s *MemorySink) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Reset drops all retained entries.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Close implements Sink.
func (s *MemorySink) Close() error {
	return nil
}

// MultiSink fans one entry out to several sinks. The first write error is
// returned after all sinks have been attempted.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink composes sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Write records the entry on every sink.
func (s *MultiSink) Write(ctx context.Context, entry Entry) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every sink.
func (s *MultiSink) Close() error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
