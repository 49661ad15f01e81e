package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/apiguard/apiguard/logger"
)

// RequestLogConfig configures the structured request logging middleware.
type RequestLogConfig struct {
	// SkipPaths lists paths that produce no request log.
	SkipPaths []string

	// Module is the logger module receiving the entries.
	Module string
}

// DefaultRequestLogConfig returns the default request log configuration.
func DefaultRequestLogConfig() RequestLogConfig {
	return RequestLogConfig{Module: "apiguard_http"}
}

// RequestLog replaces gin.Logger() with structured logs carrying status,
// latency, caller, and trace id. Status 5xx logs at Error, 4xx at Warn,
// everything else at Info.
func RequestLog() gin.HandlerFunc {
	return RequestLogWithConfig(DefaultRequestLogConfig())
}

// RequestLogWithConfig creates the request logging middleware.
func RequestLogWithConfig(cfg RequestLogConfig) gin.HandlerFunc {
	if cfg.Module == "" {
		cfg.Module = "apiguard_http"
	}

	skipPathsMap := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipPathsMap[path] = true
	}

	return func(c *gin.Context) {
		if skipPathsMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("body_size", c.Writer.Size()),
		}

		if identity := GetIdentity(c); identity != "" {
			fields = append(fields, zap.String("identity", identity))
		}
		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			fields = append(fields, zap.String("error", errorMessage))
		}

		ctx := c.Request.Context()
		switch {
		case statusCode >= 500:
			logger.ErrorCtx(ctx, cfg.Module, "http request", fields...)
		case statusCode >= 400:
			logger.WarnCtx(ctx, cfg.Module, "http request", fields...)
		default:
			logger.InfoCtx(ctx, cfg.Module, "http request", fields...)
		}
	}
}
