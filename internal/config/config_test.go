package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"REDIS_URL", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "STORE_NAMESPACE", "LOG_LEVEL", "METRICS_PORT"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gomez-dogbot:store", cfg.Store.Namespace)
	assert.Equal(t, "teams", cfg.Store.Collection)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 3, cfg.Redis.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Import.Workers)
	assert.Equal(t, 64, cfg.Import.QueueSize)
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "dogstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  namespace: office
  collection: channels
redis:
  host: redis.internal
  port: 6380
  read_timeout: 1s
logging:
  level: debug
  format: console
import:
  workers: 8
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "office", cfg.Store.Namespace)
	assert.Equal(t, "channels", cfg.Store.Collection)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr())
	assert.Equal(t, time.Second, cfg.Redis.ReadTimeout)
	assert.Equal(t, 3*time.Second, cfg.Redis.WriteTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Import.Workers)
	assert.Equal(t, 64, cfg.Import.QueueSize)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://:secret@cache:6379/2")
	t.Setenv("STORE_NAMESPACE", "from-env")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("METRICS_PORT", "9191")
	t.Setenv("REDIS_PORT", "not-a-port")

	path := filepath.Join(t.TempDir(), "dogstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  namespace: from-file\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis://:secret@cache:6379/2", cfg.Redis.URL)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "from-env", cfg.Store.Namespace)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "configuration validation failed")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty namespace", mutate: func(c *Config) { c.Store.Namespace = "" }, wantErr: "namespace"},
		{name: "collection with colon", mutate: func(c *Config) { c.Store.Collection = "a:b" }, wantErr: "collection"},
		{name: "no redis host", mutate: func(c *Config) { c.Redis.Host = "" }, wantErr: "redis host"},
		{name: "url makes host optional", mutate: func(c *Config) { c.Redis.Host = ""; c.Redis.URL = "redis://localhost" }},
		{name: "bad redis port", mutate: func(c *Config) { c.Redis.Port = 70000 }, wantErr: "redis port"},
		{name: "negative db", mutate: func(c *Config) { c.Redis.DB = -1 }, wantErr: "redis db"},
		{name: "bad metrics port", mutate: func(c *Config) { c.Metrics.Port = 0 }, wantErr: "metrics port"},
		{name: "metrics port ignored when disabled", mutate: func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Port = 0 }},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "log level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "log format"},
		{name: "no workers", mutate: func(c *Config) { c.Import.Workers = 0 }, wantErr: "workers"},
		{name: "no queue", mutate: func(c *Config) { c.Import.QueueSize = 0 }, wantErr: "queue size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
