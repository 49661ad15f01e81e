package ratelimit

import "time"

// Block state machine: Unblocked -> Blocked(until) when the window counter
// reports the quota exceeded; Blocked -> Unblocked lazily on the next
// evaluation at or after the expiry, which also clears the request history
// (fresh start, not merely unblocked). There is no terminal state; callers
// cycle block -> expire -> reset -> may block again.

// BeginBlock records a new block on the state, keeping the request history
// accumulated so far. The expiry is now plus the rule's block duration.
func BeginBlock(state CallerState, rule Rule, now time.Time) CallerState {
	state.BlockedUntil = now.Add(rule.BlockDuration())
	return state
}

// ExpireBlock lifts a lapsed block and clears the request history so the
// caller starts counting from scratch.
func ExpireBlock(state CallerState) CallerState {
	return CallerState{}
}
