package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "https://api.mailgun.net", cfg.Mailgun.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Mailgun.Timeout())
	assert.Equal(t, 60*time.Minute, cfg.Jobs.DiscoveryInterval())
	assert.Equal(t, 24*time.Hour, cfg.Jobs.IngestionInterval())
	assert.Equal(t, time.Minute, cfg.Jobs.EnqueueInterval())
	assert.Equal(t, 500, cfg.Jobs.BatchSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	yaml := `
database:
  url: postgres://localhost/audience
  max_open_conns: 10
jobs:
  discovery_interval_minutes: 15
  batch_size: 100
discovery:
  excluded_fields: [id, owner_id]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/audience", cfg.Database.URL)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15*time.Minute, cfg.Jobs.DiscoveryInterval())
	assert.Equal(t, 100, cfg.Jobs.BatchSize)
	assert.Equal(t, []string{"id", "owner_id"}, cfg.Discovery.ExcludedFields)

	// Unset values still fall back to defaults.
	assert.Equal(t, 4, cfg.Jobs.SyncWorkers)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/audience")
	t.Setenv("REDIS_ADDR", "redis-host:6380")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-host/audience", cfg.Database.URL)
	assert.Equal(t, "redis-host:6380", cfg.Redis.Addr)
}
