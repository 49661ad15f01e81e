// Package config loads and validates the application configuration from a
// YAML file with environment variable overrides.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/apiguard/apiguard/audit"
	"github.com/apiguard/apiguard/database"
	"github.com/apiguard/apiguard/logger"
	"github.com/apiguard/apiguard/ratelimit"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
}

// RedisConfig configures the optional Redis state store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig configures the decision engine wiring.
type RateLimitConfig struct {
	// StoreType selects the caller state backend: memory or redis.
	StoreType string `mapstructure:"store_type"`

	// KeyPrefix namespaces Redis keys.
	KeyPrefix string `mapstructure:"key_prefix"`

	// TestIdentity is the identity granted the wider development quota when
	// rules are seeded.
	TestIdentity string `mapstructure:"test_identity"`

	// SeedDefaults seeds the starter rules into an empty repository.
	SeedDefaults bool `mapstructure:"seed_defaults"`

	// SkipPaths lists paths exempt from throttling.
	SkipPaths []string `mapstructure:"skip_paths"`

	// JWTSecret verifies caller bearer tokens; empty disables verification.
	JWTSecret string `mapstructure:"jwt_secret"`

	// EventBufferSize sizes the decision event bus.
	EventBufferSize int `mapstructure:"event_buffer_size"`
}

// AuditConfig configures audit persistence.
type AuditConfig struct {
	// Enabled toggles audit logging entirely.
	Enabled bool `mapstructure:"enabled"`

	// ToDatabase persists entries to the request_logs table.
	ToDatabase bool `mapstructure:"to_database"`

	// ToFile appends entries to a rotated JSON-lines file.
	ToFile bool `mapstructure:"to_file"`

	// File configures the file sink.
	File audit.FileSinkConfig `mapstructure:"file"`

	// PoolSize sizes the async writer pool.
	PoolSize int `mapstructure:"pool_size"`

	// SkipPaths lists paths that produce no audit entry.
	SkipPaths []string `mapstructure:"skip_paths"`

	// RecentLimit caps the in-memory recent entry buffer.
	RecentLimit int `mapstructure:"recent_limit"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Server    ServerConfig         `mapstructure:"server"`
	Logger    logger.ManagerConfig `mapstructure:"logger"`
	Database  database.Config      `mapstructure:"database"`
	Redis     RedisConfig          `mapstructure:"redis"`
	RateLimit RateLimitConfig      `mapstructure:"ratelimit"`
	Audit     AuditConfig          `mapstructure:"audit"`
}

// DefaultAppConfig returns the configuration used when no file is present.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Mode:            "release",
		},
		Logger:   logger.DefaultManagerConfig(),
		Database: database.DefaultConfig(),
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		RateLimit: RateLimitConfig{
			StoreType:       string(ratelimit.StoreTypeMemory),
			KeyPrefix:       "apiguard:caller:",
			TestIdentity:    "testIdentity",
			SeedDefaults:    true,
			SkipPaths:       []string{"/health"},
			EventBufferSize: 256,
		},
		Audit: AuditConfig{
			Enabled:     true,
			ToDatabase:  true,
			ToFile:      false,
			File:        audit.DefaultFileSinkConfig(),
			PoolSize:    10,
			SkipPaths:   []string{"/health"},
			RecentLimit: 1000,
		},
	}
}

// ApplyDefaults fills zero-valued fields from the defaults.
func (c *AppConfig) ApplyDefaults() {
	defaults := DefaultAppConfig()

	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Server.Mode == "" {
		c.Server.Mode = defaults.Server.Mode
	}

	c.Logger.ApplyDefaults()

	if c.Redis.Addr == "" {
		c.Redis.Addr = defaults.Redis.Addr
	}

	if c.RateLimit.StoreType == "" {
		c.RateLimit.StoreType = defaults.RateLimit.StoreType
	}
	if c.RateLimit.KeyPrefix == "" {
		c.RateLimit.KeyPrefix = defaults.RateLimit.KeyPrefix
	}
	if c.RateLimit.TestIdentity == "" {
		c.RateLimit.TestIdentity = defaults.RateLimit.TestIdentity
	}
	if c.RateLimit.EventBufferSize == 0 {
		c.RateLimit.EventBufferSize = defaults.RateLimit.EventBufferSize
	}

	if c.Audit.PoolSize == 0 {
		c.Audit.PoolSize = defaults.Audit.PoolSize
	}
	if c.Audit.RecentLimit == 0 {
		c.Audit.RecentLimit = defaults.Audit.RecentLimit
	}
	if c.Audit.File.Dir == "" {
		c.Audit.File = defaults.Audit.File
	}
}

// Validate rejects an unusable configuration.
func (c *AppConfig) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Server.Mode, validation.In("debug", "release", "test")),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.RateLimit,
		validation.Field(&c.RateLimit.StoreType,
			validation.Required,
			validation.In(string(ratelimit.StoreTypeMemory), string(ratelimit.StoreTypeRedis))),
	); err != nil {
		return err
	}

	if err := c.Logger.Validate(); err != nil {
		return err
	}

	return c.Database.Validate()
}
