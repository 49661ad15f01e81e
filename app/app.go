package app

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/apiguard/apiguard/audit"
	"github.com/apiguard/apiguard/config"
	"github.com/apiguard/apiguard/logger"
	"github.com/apiguard/apiguard/ratelimit"
	"github.com/apiguard/apiguard/server"
)

// App is the assembled application.
type App struct {
	injector *do.RootScope
	cfg      config.AppConfig
}

// New loads the configuration at configPath and registers all providers.
// Components are built lazily on first use.
func New(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.Provide(injector, ProvideLoggerManager)
	do.Provide(injector, ProvideAppLogger)
	do.Provide(injector, ProvideDatabase)
	do.Provide(injector, ProvideRuleRepository)
	do.Provide(injector, ProvideStateStore)
	do.Provide(injector, ProvideEngine)
	do.Provide(injector, ProvideRecentAudit)
	do.Provide(injector, ProvideAuditSink)
	do.Provide(injector, ProvideHealthAggregator)
	do.Provide(injector, ProvideHTTPServer)

	return &App{injector: injector, cfg: cfg}, nil
}

// Injector exposes the container, used by tests.
func (a *App) Injector() *do.RootScope {
	return a.injector
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a fatal
// error, then shuts everything down in order.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := do.Invoke[*logger.CtxZapLogger](a.injector)
	if err != nil {
		return err
	}

	srv, err := do.Invoke[*server.HTTPServer](a.injector)
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}
	log.Info("apiguard started",
		zap.Int("port", a.cfg.Server.Port),
		zap.String("store", a.cfg.RateLimit.StoreType))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return srv.ShutdownWithTimeout(a.cfg.Server.ShutdownTimeout)
	})

	err = g.Wait()
	a.close(log)
	return err
}

// close flushes components that hold buffers or connections.
func (a *App) close(log *logger.CtxZapLogger) {
	if engine, engineErr := do.Invoke[*ratelimit.Engine](a.injector); engineErr == nil {
		if err := engine.Close(); err != nil {
			log.Error("engine close failed", zap.Error(err))
		}
	}
	if sink, sinkErr := do.Invoke[audit.Sink](a.injector); sinkErr == nil {
		if err := sink.Close(); err != nil {
			log.Error("audit sink close failed", zap.Error(err))
		}
	}

	// Shut down remaining components (database among them) in reverse
	// creation order.
	if err := a.injector.Shutdown(); err != nil {
		log.Error("container shutdown failed", zap.Error(err))
	}

	logger.CloseAll()
}
