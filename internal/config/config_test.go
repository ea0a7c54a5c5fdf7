package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "edge.json", cfg.SnapshotPath)
	assert.Equal(t, 1, cfg.MaxParallel)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "https://edgeupdates.microsoft.com/api/products", cfg.CatalogURL)
	assert.Empty(t, cfg.DBPath)
	assert.Empty(t, cfg.Web.BindAddress)
	assert.False(t, cfg.TelemetryEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("MAX_PARALLEL", "16")
	t.Setenv("WEB_BIND_ADDRESS", "127.0.0.1:9091")
	t.Setenv("OTLP_ENDPOINT", "collector:4317")
	t.Setenv("TELEMETRY_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.MaxParallel)
	assert.Equal(t, "127.0.0.1:9091", cfg.Web.BindAddress)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
	assert.True(t, cfg.TelemetryEnabled)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"MAX_PARALLEL":    "65",
		"REQUEST_TIMEOUT": "0s",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := LoadConfig()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelInfo,
	} {
		cfg := Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}
