package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/apiguard/apiguard/audit"
	"github.com/apiguard/apiguard/logger"
	"github.com/apiguard/apiguard/ratelimit"
)

// AuditLogConfig configures the audit middleware.
type AuditLogConfig struct {
	// SkipPaths lists paths that produce no audit entry.
	SkipPaths []string

	// Logger receives write failures. May be nil.
	Logger *logger.CtxZapLogger
}

// AuditLog records one audit entry per handled request, denied ones
// included. Register it before Throttle so it wraps the throttle and sees
// rejected requests; caller and decision are read back from the context once
// the chain unwinds.
func AuditLog(sink audit.Sink) gin.HandlerFunc {
	return AuditLogWithConfig(sink, AuditLogConfig{})
}

// AuditLogWithConfig creates the audit middleware.
func AuditLogWithConfig(sink audit.Sink, cfg AuditLogConfig) gin.HandlerFunc {
	skipPathsMap := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipPathsMap[path] = true
	}

	return func(c *gin.Context) {
		if skipPathsMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		entry := audit.NewEntry(c.Request.Method, c.Request.URL.Path, time.Now())

		c.Next()

		entry = entry.Finish(time.Now())
		entry.Handler = c.HandlerName()
		entry.Status = c.Writer.Status()
		entry.TraceID = GetTraceID(c)

		entry.Identity = GetIdentity(c)
		if entry.Identity == "" {
			entry.Identity = ratelimit.NormalizeIdentity(ResolveIdentity(c, DefaultIdentityConfig()))
		}
		entry.IP = GetIP(c)
		if entry.IP == "" {
			entry.IP = ResolveIP(c)
		}

		if decision, ok := GetDecision(c); ok {
			entry.Allowed = decision.Allowed
			entry.Reason = decision.Message
		} else {
			// Paths the throttle skipped are recorded as allowed.
			entry.Allowed = true
		}

		// The request context ends with the response; writes use their own.
		if err := sink.Write(context.Background(), entry); err != nil && cfg.Logger != nil {
			cfg.Logger.Error("audit write failed",
				zap.String("path", entry.Path),
				zap.Error(err))
		}
	}
}
