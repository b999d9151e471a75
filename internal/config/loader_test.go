package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/blobstream/pkg/download"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "structured", cfg.Logging.Profile)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, int64(download.DefaultMaxSingleGetSize), cfg.Download.MaxSingleGetSize)
	assert.Equal(t, int64(download.DefaultMaxChunkGetSize), cfg.Download.MaxChunkGetSize)
	assert.Equal(t, 4, cfg.Download.Concurrency)
	assert.False(t, cfg.Download.ValidateContent)
}

func TestLoadRuntimeOverrides(t *testing.T) {
	overrides := map[string]any{
		"server": map[string]any{
			"port": 9000,
			"host": "0.0.0.0",
		},
		"logging": map[string]any{
			"level": "debug",
		},
	}

	cfg, err := Load(overrides)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Non-overridden values keep their defaults.
	assert.Equal(t, "structured", cfg.Logging.Profile)
	assert.Equal(t, 4, cfg.Download.Concurrency)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BLOBSTREAM_SERVER_PORT", "3000")
	t.Setenv("BLOBSTREAM_LOGGING_LEVEL", "warn")
	t.Setenv("BLOBSTREAM_DOWNLOAD_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Download.Concurrency)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("BLOBSTREAM_SERVER_PORT", "4000")

	overrides := map[string]any{
		"server": map[string]any{"port": 5000},
	}

	cfg, err := Load(overrides)
	require.NoError(t, err)

	// Runtime overrides beat environment variables.
	assert.Equal(t, 5000, cfg.Server.Port)
}

func TestLoadDurationFromEnv(t *testing.T) {
	t.Setenv("BLOBSTREAM_SERVER_READ_TIMEOUT", "45s")
	t.Setenv("BLOBSTREAM_SERVER_SHUTDOWN_TIMEOUT", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
}

func TestLoadInvalidConfigRejected(t *testing.T) {
	_, err := Load(map[string]any{
		"server": map[string]any{"port": 99999},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestGetConfig(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
	assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
}
