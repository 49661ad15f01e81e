// Package ratelimit implements the per-caller rate-limit decision engine.
//
// Design philosophy:
//   - The engine is pure decision logic: it fetches rules from an injected
//     source, counts requests in a 60-second sliding window, and manages
//     temporary block state per caller.
//   - All state expiry is lazy, performed at decision time. There is no
//     background sweeper and no timer.
//   - Missing or unavailable configuration always fails closed: no rules
//     means no traffic.
package ratelimit

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ScopeAll is the wildcard scope matching any identity or IP.
const ScopeAll = "All"

// DefaultBlockSeconds is the block duration applied when a rule does not
// carry a positive one.
const DefaultBlockSeconds = 20

// Kind classifies a rule.
type Kind string

const (
	// KindAllow bypasses all throttling for matching callers.
	KindAllow Kind = "Allow"

	// KindBlock enforces the quota and blocks callers that exceed it.
	KindBlock Kind = "Block"
)

// Rule binds a caller scope to a throttling policy.
type Rule struct {
	// UserScope is either the wildcard "All" or an exact identity.
	UserScope string `json:"user_scope" mapstructure:"user_scope"`

	// IPScope is either the wildcard "All" or an exact IP address.
	IPScope string `json:"ip_scope" mapstructure:"ip_scope"`

	// MaxRequests is the quota within the sliding window.
	MaxRequests int `json:"max_requests" mapstructure:"max_requests"`

	// Kind is Allow or Block.
	Kind Kind `json:"kind" mapstructure:"kind"`

	// BlockSeconds is how long a caller stays blocked once the quota is
	// exceeded. Non-positive values fall back to DefaultBlockSeconds.
	BlockSeconds int `json:"block_seconds" mapstructure:"block_seconds"`
}

// Validate checks the rule fields.
func (r Rule) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserScope, validation.Required),
		validation.Field(&r.IPScope, validation.Required),
		validation.Field(&r.MaxRequests, validation.Required, validation.Min(1)),
		validation.Field(&r.Kind, validation.Required, validation.In(KindAllow, KindBlock)),
		validation.Field(&r.BlockSeconds, validation.Min(0)),
	)
}

// BlockDuration returns the effective block duration for the rule.
func (r Rule) BlockDuration() time.Duration {
	seconds := r.BlockSeconds
	if seconds <= 0 {
		seconds = DefaultBlockSeconds
	}
	return time.Duration(seconds) * time.Second
}

// matches reports whether the rule applies to the caller.
func (r Rule) matches(identity, ip string) bool {
	userOK := r.UserScope == ScopeAll || r.UserScope == identity
	ipOK := r.IPScope == ScopeAll || r.IPScope == ip
	return userOK && ipOK
}

// specificity scores the rule against the caller: one point per exact
// (non-wildcard) scope match. Higher wins.
func (r Rule) specificity(identity, ip string) int {
	score := 0
	if r.UserScope != ScopeAll && r.UserScope == identity {
		score++
	}
	if r.IPScope != ScopeAll && r.IPScope == ip {
		score++
	}
	return score
}
