package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8083, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8082", cfg.IdentitySource.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.IdentitySource.RequestTimeout)
	assert.False(t, cfg.TextModel.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 50, cfg.Audit.DefaultLimit)
	assert.Equal(t, 10, cfg.Audit.QuickLimit)
	assert.Equal(t, 8, cfg.Audit.AnalysisWorkers)
	assert.Equal(t, 90, cfg.Audit.StaleLoginDays)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
audit:
  default_limit: 100
text_model:
  enabled: true
  model: custom-model
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Audit.DefaultLimit)
	assert.True(t, cfg.TextModel.Enabled)
	assert.Equal(t, "custom-model", cfg.TextModel.Model)
	// Untouched values keep their defaults.
	assert.Equal(t, 10, cfg.Audit.QuickLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUDIT_SERVER_PORT", "7070")
	t.Setenv("AUDIT_ENVIRONMENT", "production")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
