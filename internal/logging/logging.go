// Package logging builds the zerolog.Logger used throughout the client.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexgolec/td-ameritrade-api/internal/config"
)

// New builds a logger at the level and format named by cfg. "json" writes
// zerolog's native structured output; "console" wraps it for local
// development readability.
func New(cfg *config.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("logging: parse level %q: %w", cfg.LogLevel, err)
	}

	var w io.Writer = os.Stdout
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", "streamer").
		Logger()

	return logger, nil
}
