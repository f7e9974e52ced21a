package logging

import (
	"testing"

	"github.com/alexgolec/td-ameritrade-api/internal/config"
)

func TestNew_ValidLevel(t *testing.T) {
	logger, err := New(&config.Config{LogLevel: "debug", LogFormat: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.GetLevel().String() != "debug" {
		t.Errorf("unexpected level: %s", logger.GetLevel())
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	if _, err := New(&config.Config{LogLevel: "info", LogFormat: "console"}); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&config.Config{LogLevel: "not-a-level", LogFormat: "json"}); err == nil {
		t.Fatal("expected an error for an invalid log level")
	}
}
