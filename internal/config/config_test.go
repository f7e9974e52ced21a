package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STREAM_ACCOUNT_ID", "STREAM_LOG_LEVEL", "STREAM_LOG_FORMAT",
		"STREAM_METRICS_ADDR", "STREAM_METRICS_INTERVAL",
		"STREAM_CONNECT_TIMEOUT", "STREAM_READ_TIMEOUT",
		"STREAM_ENABLE_COMPRESSION", "STREAM_NATS_URL", "STREAM_NATS_SUBJECT_PREFIX",
	} {
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RelayEnabled() {
		t.Error("expected relay disabled when STREAM_NATS_URL is unset")
	}
	if cfg.NATSSubjectPrefix != "streamer" {
		t.Errorf("unexpected default subject prefix: %q", cfg.NATSSubjectPrefix)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	os.Setenv("STREAM_LOG_LEVEL", "not-a-level")
	defer os.Unsetenv("STREAM_LOG_LEVEL")

	if _, err := Load(nil); err == nil {
		t.Fatal("expected validation error for an invalid log level")
	}
}

func TestLoad_RelayEnabledWhenURLSet(t *testing.T) {
	clearEnv(t)
	os.Setenv("STREAM_NATS_URL", "nats://localhost:4222")
	defer os.Unsetenv("STREAM_NATS_URL")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.RelayEnabled() {
		t.Error("expected relay enabled when STREAM_NATS_URL is set")
	}
}
