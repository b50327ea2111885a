package cli

import (
	"log/slog"
	"path/filepath"
	"testing"

	"cropcast/internal/config"
	"cropcast/internal/log"
)

func TestNewLoggerUsesConfiguredLevel(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "warn"

	logger := NewLogger(cfg)
	if logger.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(t.Context(), slog.LevelWarn) {
		t.Error("warn should be enabled")
	}
	if logger.Component() != log.ComponentApp {
		t.Errorf("component = %s", logger.Component())
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("LOG_LEVEL", "debug")

	cfg, logger := LoadAndValidateConfig()
	if cfg.DefaultCrop != "Rice" {
		t.Errorf("DefaultCrop = %s", cfg.DefaultCrop)
	}
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug should be enabled")
	}
}

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext()
	cancel()
	<-ctx.Done()
	if ctx.Err() == nil {
		t.Fatal("context should be cancelled")
	}
}
