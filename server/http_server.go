// Package server assembles the gin engine, middleware chain, and routes, and
// manages the HTTP listener lifecycle.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/apiguard/apiguard/audit"
	"github.com/apiguard/apiguard/config"
	"github.com/apiguard/apiguard/health"
	"github.com/apiguard/apiguard/httpx"
	"github.com/apiguard/apiguard/logger"
	"github.com/apiguard/apiguard/middleware"
	"github.com/apiguard/apiguard/ratelimit"
	"github.com/apiguard/apiguard/rules"
)

// HTTPServer wraps the gin engine and HTTP listener.
type HTTPServer struct {
	engine     *gin.Engine
	httpServer *http.Server
	host       string
	port       int
	mode       string
}

// Options carries the collaborators the server wires into its routes.
type Options struct {
	Config     config.AppConfig
	Engine     *ratelimit.Engine
	Repository rules.Repository
	AuditSink  audit.Sink
	Recent     *audit.MemorySink
	Health     *health.Aggregator
	Logger     *logger.CtxZapLogger
}

// NewHTTPServer builds the engine with the full middleware chain:
// trace id, request log, audit, throttle, recovery. Audit wraps the throttle
// so denied requests are recorded too.
func NewHTTPServer(opts Options) *HTTPServer {
	gin.DefaultWriter = logger.NewGinLogWriter("apiguard_gin")
	gin.DefaultErrorWriter = logger.NewGinLogWriter("apiguard_gin")

	gin.SetMode(opts.Config.Server.Mode)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(middleware.TraceID(middleware.DefaultTraceConfig()))

	requestLogCfg := middleware.DefaultRequestLogConfig()
	requestLogCfg.SkipPaths = opts.Config.RateLimit.SkipPaths
	engine.Use(middleware.RequestLogWithConfig(requestLogCfg))

	if opts.Config.Audit.Enabled && opts.AuditSink != nil {
		engine.Use(middleware.AuditLogWithConfig(opts.AuditSink, middleware.AuditLogConfig{
			SkipPaths: opts.Config.Audit.SkipPaths,
			Logger:    opts.Logger,
		}))
	}

	engine.Use(middleware.ThrottleWithConfig(opts.Engine, middleware.ThrottleConfig{
		Identity: middleware.IdentityConfig{
			JWTSecret: opts.Config.RateLimit.JWTSecret,
		},
		SkipPaths: opts.Config.RateLimit.SkipPaths,
	}))

	engine.Use(middleware.Recovery())

	engine.NoRoute(httpx.NoRouteHandler())
	engine.NoMethod(httpx.NoMethodHandler())

	registerRoutes(engine, opts)

	return &HTTPServer{
		engine: engine,
		host:   opts.Config.Server.Host,
		port:   opts.Config.Server.Port,
		mode:   opts.Config.Server.Mode,
	}
}

// GetEngine returns the gin engine, used by tests to drive requests.
func (s *HTTPServer) GetEngine() *gin.Engine {
	return s.engine
}

// Start binds the listener without blocking, confirming the port first.
func (s *HTTPServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := s.checkPortAvailable(addr); err != nil {
		return fmt.Errorf("port %d unavailable: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Debug("apiguard", "http server starting",
			zap.String("addr", addr),
			zap.String("mode", s.mode))

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// A short wait catches immediate bind failures.
	select {
	case err := <-errChan:
		logger.Error("apiguard", "http server start failed", zap.Error(err))
		return fmt.Errorf("http server start failed: %w", err)
	case <-time.After(50 * time.Millisecond):
		logger.Debug("apiguard", "http server started", zap.String("addr", addr))
		return nil
	}
}

func (s *HTTPServer) checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

// Shutdown drains in-flight requests and closes the listener.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	logger.Debug("apiguard", "shutting down http server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	logger.Debug("apiguard", "http server closed")
	return nil
}

// ShutdownWithTimeout shuts down with a deadline.
func (s *HTTPServer) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}
