package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apiguard/apiguard/httpx"
	"github.com/apiguard/apiguard/ratelimit"
)

// ContextKeyDecision holds the rate-limit decision in gin.Context.
const ContextKeyDecision = "rate_limit_decision"

// ThrottleConfig configures the throttling middleware.
type ThrottleConfig struct {
	// Identity controls caller identity resolution.
	Identity IdentityConfig

	// SkipPaths lists paths exempt from throttling, such as health checks.
	SkipPaths []string
}

// DefaultThrottleConfig returns the default throttle configuration.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{Identity: DefaultIdentityConfig()}
}

// Throttle creates the throttling middleware with default configuration.
//
// Every request is resolved to a caller, run through the decision engine,
// and either passed on or rejected with 429. The resolved identity, IP, and
// decision are stored in the context for the audit middleware.
func Throttle(engine *ratelimit.Engine) gin.HandlerFunc {
	return ThrottleWithConfig(engine, DefaultThrottleConfig())
}

// ThrottleWithConfig creates the throttling middleware.
func ThrottleWithConfig(engine *ratelimit.Engine, cfg ThrottleConfig) gin.HandlerFunc {
	skipPathsMap := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipPathsMap[path] = true
	}

	return func(c *gin.Context) {
		if skipPathsMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		identity := ratelimit.NormalizeIdentity(ResolveIdentity(c, cfg.Identity))
		ip := ResolveIP(c)

		c.Set(ContextKeyIdentity, identity)
		c.Set(ContextKeyIP, ip)

		decision := engine.Decide(c.Request.Context(), identity, ip)
		c.Set(ContextKeyDecision, decision)

		if !decision.Allowed {
			if !decision.BlockedUntil.IsZero() {
				retryAfter := int(time.Until(decision.BlockedUntil).Seconds()) + 1
				if retryAfter > 0 {
					c.Header("Retry-After", strconv.Itoa(retryAfter))
				}
			}
			httpx.TooManyRequestsJson(c, decision.Message)
			return
		}

		c.Next()
	}
}

// GetDecision reads the decision stored by Throttle.
func GetDecision(c *gin.Context) (ratelimit.Decision, bool) {
	v, exists := c.Get(ContextKeyDecision)
	if !exists {
		return ratelimit.Decision{}, false
	}
	decision, ok := v.(ratelimit.Decision)
	return decision, ok
}
