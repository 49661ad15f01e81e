// Package audit records one entry per handled request: who called, what they
// hit, how long it took, and whether the rate limiter admitted them.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one audited request.
type Entry struct {
	// ID uniquely identifies the entry.
	ID string `json:"id"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// Path is the request path.
	Path string `json:"path"`

	// Handler is the name of the handler that served the request, if known.
	Handler string `json:"handler,omitempty"`

	// Identity is the resolved caller identity.
	Identity string `json:"identity"`

	// IP is the normalized client IP.
	IP string `json:"ip"`

	// StartedAt and StoppedAt bound the request handling.
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`

	// DurationMs is StoppedAt minus StartedAt, in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Status is the HTTP status code returned.
	Status int `json:"status"`

	// Allowed reports the rate-limit decision.
	Allowed bool `json:"allowed"`

	// Reason is the denial reason, empty when allowed.
	Reason string `json:"reason,omitempty"`

	// TraceID links the entry to request logs.
	TraceID string `json:"trace_id,omitempty"`
}

// NewEntry starts an entry with a fresh ID and start time.
func NewEntry(method, path string, startedAt time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Method:    method,
		Path:      path,
		StartedAt: startedAt,
	}
}

// Finish stamps the stop time and derives the duration.
func (e Entry) Finish(stoppedAt time.Time) Entry {
	e.StoppedAt = stoppedAt
	e.DurationMs = stoppedAt.Sub(e.StartedAt).Milliseconds()
	return e
}
