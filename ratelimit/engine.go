package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/apiguard/apiguard/logger"
	"go.uber.org/zap"
)

// Denial messages. Distinct texts let operators tell a misconfigured
// deployment (no rules loaded) from a caller no rule was authored for.
const (
	// MsgRulesNotFound is returned when the rule set is empty or the rule
	// source is unavailable.
	MsgRulesNotFound = "rate limiting rules not found"

	// MsgNoRuleMatched is returned when rules exist but none applies to the
	// caller.
	MsgNoRuleMatched = "no applicable rate limit rule found"
)

// RuleSource supplies the current rule set. Rules are fetched fresh on every
// decision so edits take effect on the next request.
type RuleSource interface {
	FetchAll(ctx context.Context) ([]Rule, error)
}

// Decision is the outcome of one admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool `json:"allowed"`

	// Message is empty when allowed and a human-readable reason when
	// denied.
	Message string `json:"message,omitempty"`

	// BlockedUntil is set when the denial stems from an active or freshly
	// created block.
	BlockedUntil time.Time `json:"blocked_until,omitempty"`
}

// Engine composes rule matching, window counting, and block state into a
// single admit/deny decision per request. It performs no I/O of its own
// beyond the injected rule source and state store.
type Engine struct {
	rules   RuleSource
	store   StateStore
	now     func() time.Time
	log     *logger.CtxZapLogger
	events  EventBus
	metrics MetricsCollector
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects the time source, used by tests to control "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEventBus attaches a bus receiving decision events.
func WithEventBus(bus EventBus) Option {
	return func(e *Engine) { e.events = bus }
}

// WithLogger attaches a module logger.
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(metrics MetricsCollector) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// NewEngine creates a decision engine.
func NewEngine(rules RuleSource, store StateStore, opts ...Option) *Engine {
	e := &Engine{
		rules:   rules,
		store:   store,
		now:     time.Now,
		metrics: NewMetricsCollector(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Metrics returns a snapshot of decision counters.
func (e *Engine) Metrics() MetricsSnapshot {
	return e.metrics.GetSnapshot()
}

// Close shuts down the event bus and state store.
func (e *Engine) Close() error {
	if e.events != nil {
		e.events.Close()
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Decide runs the admission algorithm for one request, short-circuiting on
// the first applicable outcome:
//
//  1. empty or unavailable rule set -> deny (fail closed);
//  2. no matching rule -> deny with a distinct message;
//  3. Allow rule -> allow unconditionally, caller state untouched;
//  4. active block -> deny naming the expiry; lapsed block -> reset history;
//  5. count the request in the sliding window; over quota -> block and deny.
func (e *Engine) Decide(ctx context.Context, identity, ip string) Decision {
	now := e.now()
	identity = NormalizeIdentity(identity)
	ip = NormalizeIP(ip)
	key := CallerKey(identity, ip)

	rules, err := e.rules.FetchAll(ctx)
	if err != nil {
		// Collaborator failure is treated exactly like a missing rule set:
		// deny, never allow by accident.
		e.logError(ctx, "rule fetch failed, failing closed", key, err)
		return e.deny(key, Decision{Allowed: false, Message: MsgRulesNotFound})
	}
	if len(rules) == 0 {
		return e.deny(key, Decision{Allowed: false, Message: MsgRulesNotFound})
	}

	rule, found := MatchRule(rules, identity, ip)
	if !found {
		return e.deny(key, Decision{Allowed: false, Message: MsgNoRuleMatched})
	}

	// Allow rules bypass throttling entirely and never consult or mutate
	// caller state.
	if rule.Kind == KindAllow {
		return e.allow(key)
	}

	var decision Decision
	var unblocked, blocked bool

	_, err = e.store.Update(ctx, key, func(state CallerState) CallerState {
		if state.Blocked() {
			if now.Before(state.BlockedUntil) {
				// Still blocked: reject without consuming a window slot.
				decision = Decision{
					Allowed:      false,
					Message:      blockedMessage(state.BlockedUntil),
					BlockedUntil: state.BlockedUntil,
				}
				return state
			}
			// Block lapsed: fresh start before counting this request.
			state = ExpireBlock(state)
			unblocked = true
		}

		var within bool
		state, within = RecordAndCheck(state, rule.MaxRequests, now)
		if within {
			decision = Decision{Allowed: true}
			return state
		}

		state = BeginBlock(state, rule, now)
		blocked = true
		decision = Decision{
			Allowed:      false,
			Message:      quotaExceededMessage(state.BlockedUntil),
			BlockedUntil: state.BlockedUntil,
		}
		return state
	})
	if err != nil {
		e.logError(ctx, "state store unavailable, failing closed", key, err)
		return e.deny(key, Decision{Allowed: false, Message: MsgRulesNotFound})
	}

	if unblocked {
		e.metrics.RecordUnblocked()
		e.publish(Event{Type: EventUnblocked, CallerKey: key, Timestamp: now})
	}
	if blocked {
		e.metrics.RecordBlocked()
		e.publish(Event{
			Type:         EventBlocked,
			CallerKey:    key,
			BlockedUntil: decision.BlockedUntil,
			Timestamp:    now,
		})
	}

	if decision.Allowed {
		return e.allow(key)
	}
	return e.deny(key, decision)
}

func (e *Engine) allow(key string) Decision {
	e.metrics.RecordAllowed()
	e.publish(Event{Type: EventAllowed, CallerKey: key, Timestamp: e.now()})
	return Decision{Allowed: true}
}

func (e *Engine) deny(key string, decision Decision) Decision {
	e.metrics.RecordDenied()
	e.publish(Event{
		Type:         EventDenied,
		CallerKey:    key,
		Reason:       decision.Message,
		BlockedUntil: decision.BlockedUntil,
		Timestamp:    e.now(),
	})
	return decision
}

func (e *Engine) publish(event Event) {
	if e.events != nil {
		e.events.Publish(event)
	}
}

func (e *Engine) logError(ctx context.Context, msg, key string, err error) {
	if e.log != nil {
		e.log.ErrorCtx(ctx, msg, zap.String("caller", key), zap.Error(err))
	}
}

func blockedMessage(until time.Time) string {
	return fmt.Sprintf("request blocked until %s", until.Format(time.RFC3339))
}

func quotaExceededMessage(until time.Time) string {
	return fmt.Sprintf("rate limit exceeded, blocked until %s", until.Format(time.RFC3339))
}
