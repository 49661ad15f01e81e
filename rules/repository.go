// Package rules stores and serves rate-limit rules.
//
// Repositories implement ratelimit.RuleSource, so the engine always sees the
// current rule set without caching; an edit takes effect on the very next
// request.
package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/apiguard/apiguard/ratelimit"
)

// Repository manages the persistent rule set.
type Repository interface {
	ratelimit.RuleSource

	// Create appends a validated rule.
	Create(ctx context.Context, rule ratelimit.Rule) error

	// Replace swaps the whole rule set atomically.
	Replace(ctx context.Context, rules []ratelimit.Rule) error
}

// MemoryRepository is an in-process Repository, used in tests and in
// deployments without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	rules []ratelimit.Rule
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// FetchAll returns a copy of the rule set in insertion order.
func (r *MemoryRepository) FetchAll(ctx context.Context) ([]ratelimit.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ratelimit.Rule, len(r.rules))
	copy(out, r.rules)
	return out, nil
}

// Create appends a validated rule.
func (r *MemoryRepository) Create(ctx context.Context, rule ratelimit.Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
	return nil
}

// Replace swaps the whole rule set atomically.
func (r *MemoryRepository) Replace(ctx context.Context, rules []ratelimit.Rule) error {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("invalid rule: %w", err)
		}
	}

	next := make([]ratelimit.Rule, len(rules))
	copy(next, rules)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = next
	return nil
}
