package ratelimit

// MatchRule selects the single rule to enforce for a caller.
//
// Candidates are rules whose user scope is "All" or equals the identity AND
// whose IP scope is "All" or equals the IP. Among candidates the highest
// specificity wins; ties keep the earliest candidate in rule-set order, so
// the choice is deterministic for a given ordering.
//
// The second return value is false when no rule matches, including when the
// rule set is empty. Callers must treat that as an explicit deny.
func MatchRule(rules []Rule, identity, ip string) (Rule, bool) {
	var chosen Rule
	best := -1

	for _, rule := range rules {
		if !rule.matches(identity, ip) {
			continue
		}
		if score := rule.specificity(identity, ip); score > best {
			best = score
			chosen = rule
		}
	}

	return chosen, best >= 0
}
