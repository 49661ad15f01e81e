package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsSnapshot is a point-in-time view of engine counters.
type MetricsSnapshot struct {
	TotalRequests int64     `json:"total_requests"`
	Allowed       int64     `json:"allowed"`
	Denied        int64     `json:"denied"`
	Blocks        int64     `json:"blocks"`
	Unblocks      int64     `json:"unblocks"`
	DenyRate      float64   `json:"deny_rate"`
	LastResetAt   time.Time `json:"last_reset_at"`
}

// MetricsCollector counts decision outcomes.
type MetricsCollector interface {
	// RecordAllowed counts an admitted request.
	RecordAllowed()

	// RecordDenied counts a rejected request.
	RecordDenied()

	// RecordBlocked counts a transition into the blocked state.
	RecordBlocked()

	// RecordUnblocked counts a lapsed block being lifted.
	RecordUnblocked()

	// GetSnapshot returns current counters.
	GetSnapshot() MetricsSnapshot

	// Reset zeroes all counters.
	Reset()
}

type metricsCollector struct {
	total       int64
	allowed     int64
	denied      int64
	blocks      int64
	unblocks    int64
	lastResetAt time.Time
	mu          sync.RWMutex
}

// NewMetricsCollector creates an atomic counter collector.
func NewMetricsCollector() MetricsCollector {
	return &metricsCollector{lastResetAt: time.Now()}
}

func (m *metricsCollector) RecordAllowed() {
	atomic.AddInt64(&m.total, 1)
	atomic.AddInt64(&m.allowed, 1)
}

func (m *metricsCollector) RecordDenied() {
	atomic.AddInt64(&m.total, 1)
	atomic.AddInt64(&m.denied, 1)
}

func (m *metricsCollector) RecordBlocked() {
	atomic.AddInt64(&m.blocks, 1)
}

func (m *metricsCollector) RecordUnblocked() {
	atomic.AddInt64(&m.unblocks, 1)
}

func (m *metricsCollector) GetSnapshot() MetricsSnapshot {
	total := atomic.LoadInt64(&m.total)
	denied := atomic.LoadInt64(&m.denied)

	var denyRate float64
	if total > 0 {
		denyRate = float64(denied) / float64(total)
	}

	m.mu.RLock()
	lastResetAt := m.lastResetAt
	m.mu.RUnlock()

	return MetricsSnapshot{
		TotalRequests: total,
		Allowed:       atomic.LoadInt64(&m.allowed),
		Denied:        denied,
		Blocks:        atomic.LoadInt64(&m.blocks),
		Unblocks:      atomic.LoadInt64(&m.unblocks),
		DenyRate:      denyRate,
		LastResetAt:   lastResetAt,
	}
}

func (m *metricsCollector) Reset() {
	atomic.StoreInt64(&m.total, 0)
	atomic.StoreInt64(&m.allowed, 0)
	atomic.StoreInt64(&m.denied, 0)
	atomic.StoreInt64(&m.blocks, 0)
	atomic.StoreInt64(&m.unblocks, 0)

	m.mu.Lock()
	m.lastResetAt = time.Now()
	m.mu.Unlock()
}
