package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDKeyDefault is the context key holding the trace id.
	TraceIDKeyDefault = "trace_id"

	// TraceIDHeaderDefault is the HTTP header carrying the trace id.
	TraceIDHeaderDefault = "X-Trace-ID"
)

// TraceConfig configures the trace id middleware.
type TraceConfig struct {
	// TraceIDKey is the context key (default "trace_id").
	TraceIDKey string

	// TraceIDHeader is the HTTP header name (default "X-Trace-ID").
	TraceIDHeader string

	// EnableResponseHeader writes the trace id into the response headers.
	EnableResponseHeader bool

	// Generator produces new trace ids (default UUID).
	Generator func() string
}

// DefaultTraceConfig returns the default trace configuration.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		TraceIDKey:           TraceIDKeyDefault,
		TraceIDHeader:        TraceIDHeaderDefault,
		EnableResponseHeader: true,
		Generator:            func() string { return uuid.New().String() },
	}
}

// TraceID extracts the trace id from the request header or generates one,
// then injects it into both gin.Context and the request context so logs for
// one request can be correlated.
func TraceID(cfg TraceConfig) gin.HandlerFunc {
	if cfg.TraceIDKey == "" {
		cfg.TraceIDKey = TraceIDKeyDefault
	}
	if cfg.TraceIDHeader == "" {
		cfg.TraceIDHeader = TraceIDHeaderDefault
	}
	if cfg.Generator == nil {
		cfg.Generator = func() string { return uuid.New().String() }
	}

	return func(c *gin.Context) {
		traceID := c.GetHeader(cfg.TraceIDHeader)
		if traceID == "" {
			traceID = cfg.Generator()
		}

		ctx := context.WithValue(c.Request.Context(), cfg.TraceIDKey, traceID) //nolint:staticcheck
		c.Request = c.Request.WithContext(ctx)
		c.Set(cfg.TraceIDKey, traceID)

		if cfg.EnableResponseHeader {
			c.Writer.Header().Set(cfg.TraceIDHeader, traceID)
		}

		c.Next()
	}
}

// GetTraceID reads the trace id from gin.Context.
func GetTraceID(c *gin.Context) string {
	return GetTraceIDWithKey(c, TraceIDKeyDefault)
}

// GetTraceIDWithKey reads the trace id stored under key.
func GetTraceIDWithKey(c *gin.Context, key string) string {
	traceID, exists := c.Get(key)
	if !exists {
		return ""
	}
	if id, ok := traceID.(string); ok {
		return id
	}
	return ""
}
