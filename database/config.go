// Package database opens and manages the GORM connection backing rule and
// audit persistence.
package database

import (
	"time"
)

// Config is the database connection configuration.
type Config struct {
	Driver          string        `mapstructure:"driver"`            // mysql, postgres, sqlite
	DSN             string        `mapstructure:"dsn"`               // data source name
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // maximum open connections
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // maximum idle connections
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // connection maximum lifetime
	EnableLog       bool          `mapstructure:"enable_log"`        // whether SQL logging is enabled
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`    // slow query threshold
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite",
		DSN:             "file:apiguard.db?cache=shared",
		MaxOpenConns:    100,
		MaxIdleConns:    10,
		ConnMaxLifetime: 3600 * time.Second,
		EnableLog:       true,
		SlowThreshold:   200 * time.Millisecond,
	}
}

// Validate fills defaults and rejects an unusable configuration.
func (c *Config) Validate() error {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.DSN == "" {
		return ErrInvalidConfig
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 100
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 3600 * time.Second
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
	return nil
}
