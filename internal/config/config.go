// Package config loads the streamer client's runtime configuration from
// environment variables, using the same caarlos0/env + godotenv pattern
// common across this module's ambient tooling.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every environment-tunable setting the client reads at
// startup. See SPEC_FULL §6 for the full variable table.
type Config struct {
	AccountID string `env:"STREAM_ACCOUNT_ID"`

	LogLevel  string `env:"STREAM_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"STREAM_LOG_FORMAT" envDefault:"json"`

	MetricsAddr     string        `env:"STREAM_METRICS_ADDR" envDefault:":9090"`
	MetricsInterval time.Duration `env:"STREAM_METRICS_INTERVAL" envDefault:"15s"`

	ConnectTimeout    time.Duration `env:"STREAM_CONNECT_TIMEOUT" envDefault:"10s"`
	ReadTimeout       time.Duration `env:"STREAM_READ_TIMEOUT" envDefault:"30s"`
	EnableCompression bool          `env:"STREAM_ENABLE_COMPRESSION" envDefault:"true"`

	NATSURL           string `env:"STREAM_NATS_URL"`
	NATSSubjectPrefix string `env:"STREAM_NATS_SUBJECT_PREFIX" envDefault:"streamer"`
}

// Load reads a .env file if present, then overlays process environment
// variables: ENV vars take priority over .env file values, which take
// priority over defaults. A missing .env file is not an error.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations this client cannot run with.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("STREAM_LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("STREAM_LOG_FORMAT must be one of json, console (got %q)", c.LogFormat)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("STREAM_CONNECT_TIMEOUT must be positive, got %s", c.ConnectTimeout)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("STREAM_READ_TIMEOUT must be positive, got %s", c.ReadTimeout)
	}
	return nil
}

// RelayEnabled reports whether a NATS relay should be dialed.
func (c *Config) RelayEnabled() bool {
	return c.NATSURL != ""
}

// LogFields logs the loaded configuration at Info level.
func (c *Config) LogFields(logger zerolog.Logger) {
	logger.Info().
		Str("account_id", c.AccountID).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Str("metrics_addr", c.MetricsAddr).
		Dur("metrics_interval", c.MetricsInterval).
		Dur("connect_timeout", c.ConnectTimeout).
		Dur("read_timeout", c.ReadTimeout).
		Bool("enable_compression", c.EnableCompression).
		Bool("relay_enabled", c.RelayEnabled()).
		Str("nats_subject_prefix", c.NATSSubjectPrefix).
		Msg("configuration loaded")
}
