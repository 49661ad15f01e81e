package ratelimit

import "time"

const (
	// AnonymousIdentity is used when the request carries no identity.
	AnonymousIdentity = "Anonymous"

	// UnknownIP is used when the client IP cannot be determined.
	UnknownIP = "Unknown"

	loopbackV6 = "::1"
	loopbackV4 = "127.0.0.1"
)

// NormalizeIdentity applies the anonymous default.
func NormalizeIdentity(identity string) string {
	if identity == "" {
		return AnonymousIdentity
	}
	return identity
}

// NormalizeIP applies the unknown default and folds the IPv6 loopback into
// its IPv4 form so both spellings map to the same caller.
func NormalizeIP(ip string) string {
	if ip == "" {
		return UnknownIP
	}
	if ip == loopbackV6 {
		return loopbackV4
	}
	return ip
}

// CallerKey derives the composite key scoping rate-limit state. Two requests
// with the same identity and IP always map to the same key.
func CallerKey(identity, ip string) string {
	return NormalizeIdentity(identity) + "|" + NormalizeIP(ip)
}

// CallerState is the per-caller record held by the state store.
//
// Timestamps never contains entries older than the window length relative to
// "now" at the moment of inspection; pruning happens lazily on each access.
// BlockedUntil is the zero time while the caller is not blocked.
type CallerState struct {
	Timestamps   []time.Time `json:"timestamps"`
	BlockedUntil time.Time   `json:"blocked_until"`
}

// Blocked reports whether a block has been recorded, regardless of whether
// it has since lapsed.
func (s CallerState) Blocked() bool {
	return !s.BlockedUntil.IsZero()
}

// BlockActiveAt reports whether the block is still in force at now.
func (s CallerState) BlockActiveAt(now time.Time) bool {
	return s.Blocked() && now.Before(s.BlockedUntil)
}

// Clone returns a deep copy so mutations never alias stored slices.
func (s CallerState) Clone() CallerState {
	out := CallerState{BlockedUntil: s.BlockedUntil}
	if len(s.Timestamps) > 0 {
		out.Timestamps = make([]time.Time, len(s.Timestamps))
		copy(out.Timestamps, s.Timestamps)
	}
	return out
}

// empty reports whether the state carries no information worth persisting.
func (s CallerState) empty() bool {
	return len(s.Timestamps) == 0 && !s.Blocked()
}
