// Package app wires the application components together with samber/do and
// manages their lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"
	gormlogger "gorm.io/gorm/logger"

	"github.com/apiguard/apiguard/audit"
	"github.com/apiguard/apiguard/config"
	"github.com/apiguard/apiguard/database"
	"github.com/apiguard/apiguard/health"
	"github.com/apiguard/apiguard/logger"
	"github.com/apiguard/apiguard/ratelimit"
	"github.com/apiguard/apiguard/rules"
	"github.com/apiguard/apiguard/server"
)

// ProvideLoggerManager builds the log manager from configuration.
func ProvideLoggerManager(i do.Injector) (*logger.Manager, error) {
	cfg := do.MustInvoke[config.AppConfig](i)
	if err := cfg.Logger.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}
	logger.InitManager(cfg.Logger)
	return logger.NewManager(cfg.Logger), nil
}

// ProvideAppLogger returns the application's root module logger.
func ProvideAppLogger(i do.Injector) (*logger.CtxZapLogger, error) {
	manager := do.MustInvoke[*logger.Manager](i)
	return manager.GetLogger("apiguard"), nil
}

// ProvideDatabase opens the GORM connection with the SQL logger attached.
func ProvideDatabase(i do.Injector) (*database.Manager, error) {
	cfg := do.MustInvoke[config.AppConfig](i)
	log := do.MustInvoke[*logger.CtxZapLogger](i)

	factory := func(dbCfg database.Config) gormlogger.Interface {
		if !dbCfg.EnableLog {
			return gormlogger.Default.LogMode(gormlogger.Silent)
		}
		glCfg := logger.DefaultGormLoggerConfig()
		glCfg.SlowThreshold = dbCfg.SlowThreshold
		return logger.NewGormLogger(glCfg)
	}

	return database.NewManager(cfg.Database, factory, log)
}

// ProvideRuleRepository builds the database-backed rule repository and seeds
// the starter rules when configured.
func ProvideRuleRepository(i do.Injector) (rules.Repository, error) {
	cfg := do.MustInvoke[config.AppConfig](i)
	db := do.MustInvoke[*database.Manager](i)

	repo, err := rules.NewGormRepository(db.DB())
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit.SeedDefaults {
		if err := rules.SeedDefaults(context.Background(), repo, cfg.RateLimit.TestIdentity); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// ProvideStateStore selects the caller state backend from configuration.
func ProvideStateStore(i do.Injector) (ratelimit.StateStore, error) {
	cfg := do.MustInvoke[config.AppConfig](i)

	switch ratelimit.StoreType(cfg.RateLimit.StoreType) {
	case ratelimit.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return ratelimit.NewRedisStore(client, cfg.RateLimit.KeyPrefix), nil
	case ratelimit.StoreTypeMemory:
		return ratelimit.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.RateLimit.StoreType)
	}
}

// ProvideEngine assembles the decision engine.
func ProvideEngine(i do.Injector) (*ratelimit.Engine, error) {
	cfg := do.MustInvoke[config.AppConfig](i)
	repo := do.MustInvoke[rules.Repository](i)
	store := do.MustInvoke[ratelimit.StateStore](i)
	manager := do.MustInvoke[*logger.Manager](i)

	return ratelimit.NewEngine(repo, store,
		ratelimit.WithLogger(manager.GetLogger("apiguard_ratelimit")),
		ratelimit.WithEventBus(ratelimit.NewEventBus(cfg.RateLimit.EventBufferSize)),
	), nil
}

// ProvideRecentAudit keeps the in-memory recent entry buffer served by the
// admin API.
func ProvideRecentAudit(i do.Injector) (*audit.MemorySink, error) {
	cfg := do.MustInvoke[config.AppConfig](i)
	return audit.NewMemorySink(cfg.Audit.RecentLimit), nil
}

// ProvideAuditSink composes the configured audit sinks behind one async
// writer.
func ProvideAuditSink(i do.Injector) (audit.Sink, error) {
	cfg := do.MustInvoke[config.AppConfig](i)
	log := do.MustInvoke[*logger.CtxZapLogger](i)
	recent := do.MustInvoke[*audit.MemorySink](i)

	if !cfg.Audit.Enabled {
		return recent, nil
	}

	sinks := []audit.Sink{recent}

	if cfg.Audit.ToDatabase {
		db := do.MustInvoke[*database.Manager](i)
		gormSink, err := audit.NewGormSink(db.DB())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, gormSink)
	}

	if cfg.Audit.ToFile {
		sinks = append(sinks, audit.NewFileSink(cfg.Audit.File))
	}

	return audit.NewAsyncSink(audit.NewMultiSink(sinks...), cfg.Audit.PoolSize, log)
}

// ProvideHealthAggregator registers reachability checks for the database and
// the caller state store.
func ProvideHealthAggregator(i do.Injector) (*health.Aggregator, error) {
	db := do.MustInvoke[*database.Manager](i)
	store := do.MustInvoke[ratelimit.StateStore](i)

	agg := health.NewAggregator(5 * time.Second)
	agg.Register(health.CheckerFunc{
		CheckName: "database",
		Fn: func(ctx context.Context) error {
			return db.Ping()
		},
	})
	agg.Register(health.CheckerFunc{
		CheckName: "state_store",
		Fn: func(ctx context.Context) error {
			_, _, err := store.Get(ctx, "health|probe")
			return err
		},
	})
	return agg, nil
}

// ProvideHTTPServer assembles the HTTP server.
func ProvideHTTPServer(i do.Injector) (*server.HTTPServer, error) {
	cfg := do.MustInvoke[config.AppConfig](i)

	return server.NewHTTPServer(server.Options{
		Config:     cfg,
		Engine:     do.MustInvoke[*ratelimit.Engine](i),
		Repository: do.MustInvoke[rules.Repository](i),
		AuditSink:  do.MustInvoke[audit.Sink](i),
		Recent:     do.MustInvoke[*audit.MemorySink](i),
		Health:     do.MustInvoke[*health.Aggregator](i),
		Logger:     do.MustInvoke[*logger.CtxZapLogger](i),
	}), nil
}
