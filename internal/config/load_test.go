package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv provides the settings that have no defaults. Tests using it
// cannot run in parallel because t.Setenv mutates process state.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CLIPPINGS_DATABASE_URL", "postgres://localhost:5432/clippings")
	t.Setenv("CLIPPINGS_LLM_GEMINI_API_KEY", "test-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)

	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName)
	assert.Equal(t, "text-embedding-004", cfg.LLM.EmbeddingModel)

	assert.Equal(t, 2, cfg.Worker.MaxRetries)
	assert.Equal(t, 1000, cfg.Worker.BaseDelayMs)
	assert.Equal(t, 30000, cfg.Worker.MaxDelayMs)
	assert.Equal(t, 3, cfg.Worker.FetchConcurrency)
	assert.Equal(t, 30000, cfg.Worker.FetchTimeoutMs)
	assert.Equal(t, 60, cfg.Worker.TriggerIntervalS)
	assert.False(t, cfg.Worker.SyncEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLIPPINGS_SERVER_PORT", "9090")
	t.Setenv("CLIPPINGS_SERVER_LOG_LEVEL", "debug")
	t.Setenv("CLIPPINGS_WORKER_MAX_RETRIES", "5")
	t.Setenv("CLIPPINGS_WORKER_FETCH_CONCURRENCY", "8")
	t.Setenv("CLIPPINGS_WORKER_SYNC_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 5, cfg.Worker.MaxRetries)
	assert.Equal(t, 8, cfg.Worker.FetchConcurrency)
	assert.True(t, cfg.Worker.SyncEnabled)
}

func TestLoadRejectsMissingDatabaseURL(t *testing.T) {
	t.Setenv("CLIPPINGS_DATABASE_URL", "")
	t.Setenv("CLIPPINGS_LLM_GEMINI_API_KEY", "test-key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLIPPINGS_SERVER_LOG_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
