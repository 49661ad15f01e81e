package database

import (
	"fmt"
	"time"

	"github.com/apiguard/apiguard/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerFactory creates the GORM logger for a connection.
type GormLoggerFactory func(cfg Config) gormlogger.Interface

// Manager owns the GORM connection and its lifecycle.
type Manager struct {
	db     *gorm.DB
	config Config
	logger *logger.CtxZapLogger
}

// NewManager validates the configuration, opens the connection, and
// configures the pool.
//
// loggerFactory may be nil, in which case GORM runs silent. logger must not
// be nil.
func NewManager(cfg Config, loggerFactory GormLoggerFactory, log *logger.CtxZapLogger) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := openDB(cfg, loggerFactory)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Debug("database connection established", zap.String("driver", cfg.Driver))

	return &Manager{db: db, config: cfg, logger: log}, nil
}

func openDB(cfg Config, loggerFactory GormLoggerFactory) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}

	var gl gormlogger.Interface
	if loggerFactory != nil {
		gl = loggerFactory(cfg)
	} else {
		gl = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: gl,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
}

// DB returns the GORM handle.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Ping verifies the connection is alive.
func (m *Manager) Ping() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		m.logger.Error("failed to get sql.DB on close", zap.Error(err))
		return err
	}
	if err := sqlDB.Close(); err != nil {
		m.logger.Error("failed to close database connection", zap.Error(err))
		return err
	}
	m.logger.Debug("database connection closed")
	return nil
}

// Shutdown implements the samber/do shutdown hook.
func (m *Manager) Shutdown() error {
	return m.Close()
}
