package rules

import (
	"context"
	"fmt"

	"github.com/apiguard/apiguard/ratelimit"
)

// DefaultTestIdentity is the identity granted the wider development quota
// when none is configured.
const DefaultTestIdentity = "testIdentity"

// DefaultRules returns the starter rule set: a tight anonymous quota, a wide
// quota for the named test identity, and an unconditional fallback allowing
// light traffic from everyone else.
func DefaultRules(testIdentity string) []ratelimit.Rule {
	if testIdentity == "" {
		testIdentity = DefaultTestIdentity
	}
	return []ratelimit.Rule{
		{
			UserScope:    ratelimit.AnonymousIdentity,
			IPScope:      ratelimit.ScopeAll,
			MaxRequests:  5,
			Kind:         ratelimit.KindBlock,
			BlockSeconds: ratelimit.DefaultBlockSeconds,
		},
		{
			UserScope:    testIdentity,
			IPScope:      ratelimit.ScopeAll,
			MaxRequests:  50,
			Kind:         ratelimit.KindBlock,
			BlockSeconds: ratelimit.DefaultBlockSeconds,
		},
		{
			UserScope:   ratelimit.ScopeAll,
			IPScope:     ratelimit.ScopeAll,
			MaxRequests: 3,
			Kind:        ratelimit.KindAllow,
		},
	}
}

// SeedDefaults writes the starter rules into an empty repository. A
// repository that already holds rules is left untouched.
func SeedDefaults(ctx context.Context, repo Repository, testIdentity string) error {
	existing, err := repo.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch rules before seeding: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, rule := range DefaultRules(testIdentity) {
		if err := repo.Create(ctx, rule); err != nil {
			return fmt.Errorf("seed default rule: %w", err)
		}
	}
	return nil
}
