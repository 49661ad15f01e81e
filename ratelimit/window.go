package ratelimit

import "time"

// WindowLength is the fixed sliding-window length over which requests are
// counted.
const WindowLength = 60 * time.Second

// PruneWindow drops timestamps that have fallen out of the trailing window,
// keeping entries with now-t < WindowLength.
func PruneWindow(timestamps []time.Time, now time.Time) []time.Time {
	if len(timestamps) == 0 {
		return timestamps
	}

	cutoff := now.Add(-WindowLength)
	kept := timestamps[:0]
	for _, t := range timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// RecordAndCheck prunes the window, appends now as one real request attempt,
// and reports whether the caller is still within quota. The request that
// pushes the count to maxRequests+1 is the one that trips the limit.
//
// Each call counts one attempt; callers must invoke it exactly once per
// request that reaches this stage.
func RecordAndCheck(state CallerState, maxRequests int, now time.Time) (CallerState, bool) {
	state.Timestamps = PruneWindow(state.Timestamps, now)
	state.Timestamps = append(state.Timestamps, now)
	return state, len(state.Timestamps) <= maxRequests
}
