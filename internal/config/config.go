package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	CatalogURL     string        `envconfig:"CATALOG_URL" default:"https://edgeupdates.microsoft.com/api/products"`
	CDPAPIURL      string        `envconfig:"CDP_API_URL" default:"https://msedge.api.cdp.microsoft.com/api/v2/contents/Browser/namespaces/Default/names"`
	FwlinkURL      string        `envconfig:"FWLINK_URL" default:"https://go.microsoft.com/fwlink/?linkid="`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"edge.json"`
	// DBPath enables the download history when set.
	DBPath      string `envconfig:"DB_PATH"`
	OutputDir   string `envconfig:"OUTPUT_DIR"`
	MaxParallel int    `envconfig:"MAX_PARALLEL" default:"1"`

	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`

	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`
	OTLPEndpoint     string `envconfig:"OTLP_ENDPOINT"`

	Web struct {
		// BindAddress exposes /metrics and /health while a command runs. Empty disables it.
		BindAddress     string        `split_words:"true"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.MaxParallel < 1 || c.MaxParallel > 64 {
		return fmt.Errorf("MAX_PARALLEL must be between 1 and 64, got %d", c.MaxParallel)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}

	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
