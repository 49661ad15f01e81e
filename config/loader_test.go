package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "memory", cfg.RateLimit.StoreType)
	assert.Equal(t, "testIdentity", cfg.RateLimit.TestIdentity)
	assert.True(t, cfg.RateLimit.SeedDefaults)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  mode: debug
  read_timeout: 5s
ratelimit:
  store_type: redis
  test_identity: devUser
  skip_paths:
    - /health
    - /metrics
database:
  driver: sqlite
  dsn: "file::memory:?cache=shared"
audit:
  enabled: true
  to_database: false
  to_file: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "redis", cfg.RateLimit.StoreType)
	assert.Equal(t, "devUser", cfg.RateLimit.TestIdentity)
	assert.Equal(t, []string{"/health", "/metrics"}, cfg.RateLimit.SkipPaths)
	assert.False(t, cfg.Audit.ToDatabase)
	assert.True(t, cfg.Audit.ToFile)

	// Untouched sections keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "apiguard:caller:", cfg.RateLimit.KeyPrefix)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidStoreType(t *testing.T) {
	path := writeConfigFile(t, `
ratelimit:
  store_type: cassandra
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 99999
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAppConfig_ApplyDefaults(t *testing.T) {
	cfg := AppConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.RateLimit.StoreType)
	assert.Equal(t, 256, cfg.RateLimit.EventBufferSize)
	assert.Equal(t, 10, cfg.Audit.PoolSize)
	assert.NotEmpty(t, cfg.Audit.File.Dir)
}
