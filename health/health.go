// Package health aggregates liveness checks over the service's
// collaborators: the rule database and the caller state store.
package health

import (
	"context"
	"time"
)

// Status is the health state of a check or of the whole service.
type Status string

const (
	// StatusHealthy means all checks passed.
	StatusHealthy Status = "healthy"

	// StatusUnhealthy means at least one check failed.
	StatusUnhealthy Status = "unhealthy"
)

// Checker is one health check.
type Checker interface {
	// Name identifies the check in the response.
	Name() string

	// Check returns nil when the collaborator is reachable.
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

// Name implements Checker.
func (c CheckerFunc) Name() string {
	return c.CheckName
}

// Check implements Checker.
func (c CheckerFunc) Check(ctx context.Context) error {
	return c.Fn(ctx)
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Response is the aggregated health report.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// IsHealthy reports whether every check passed.
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}
