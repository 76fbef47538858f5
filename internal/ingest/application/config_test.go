package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SUPPRESS_SECONDS", "")
	t.Setenv("STREAM_PING_SECONDS", "")
	t.Setenv("ALERT_WEBHOOK_URL", "")
	t.Setenv("ALERTING_CONFIG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.SuppressWindow())
	assert.Equal(t, 25*time.Second, cfg.PingInterval())
	assert.Equal(t, 5*time.Second, cfg.WebhookTimeout())
	assert.Empty(t, cfg.WebhookURL)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SUPPRESS_SECONDS", "120")
	t.Setenv("STREAM_PING_SECONDS", "10")
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.example.com/fire")
	t.Setenv("ALERTING_CONFIG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.SuppressWindow())
	assert.Equal(t, 10*time.Second, cfg.PingInterval())
	assert.Equal(t, "https://hooks.example.com/fire", cfg.WebhookURL)
}

func TestLoadConfigYamlOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerting.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suppress_seconds: 300\nwebhook_url: https://yaml.example.com\n"), 0o600))

	t.Setenv("SUPPRESS_SECONDS", "120")
	t.Setenv("ALERTING_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.SuppressWindow())
	assert.Equal(t, "https://yaml.example.com", cfg.WebhookURL)
}

func TestLoadConfigBadOverlayPath(t *testing.T) {
	t.Setenv("ALERTING_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SUPPRESS_SECONDS", "not-a-number")
	t.Setenv("ALERTING_CONFIG", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.SuppressSeconds)
}
