package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Mount.Backend != "fuse" {
		t.Errorf("backend = %q, want fuse", cfg.Mount.Backend)
	}
	if cfg.Mount.AllowOther {
		t.Error("allow_other should default to false")
	}
	if !cfg.Mount.Foreground {
		t.Error("foreground should default to true")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelffs.yaml")
	data := "logging:\n  level: debug\n  format: json\nmount:\n  backend: nfs\n  allow_other: true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Mount.Backend != "nfs" || !cfg.Mount.AllowOther {
		t.Errorf("unexpected mount config: %+v", cfg.Mount)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SHELFFS_MOUNT_BACKEND", "nfs")
	t.Setenv("SHELFFS_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mount.Backend != "nfs" {
		t.Errorf("backend = %q, want nfs from env", cfg.Mount.Backend)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want warn from env", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelffs.yaml")
	if err := os.WriteFile(path, []byte("mount:\n  backend: sshfs\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestLoadMissingFileIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	cfg := &Config{Logging: Logging{Level: "error", Format: "text"}}
	log := cfg.Logger()
	ctx := context.Background()
	if log.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn should be disabled at error level")
	}
	if !log.Enabled(ctx, slog.LevelError) {
		t.Error("error should be enabled at error level")
	}
}
