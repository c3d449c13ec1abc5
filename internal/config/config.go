// Package config loads shelffs settings from an optional YAML file and
// SHELFFS_* environment variables. Command-line flags override both.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Logging struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type Mount struct {
	Backend    string `mapstructure:"backend" validate:"oneof=fuse nfs"`
	AllowOther bool   `mapstructure:"allow_other"`
	Foreground bool   `mapstructure:"foreground"`
	Catalog    string `mapstructure:"catalog"`
}

type Config struct {
	Logging Logging `mapstructure:"logging"`
	Mount   Mount   `mapstructure:"mount"`
}

// Load reads configuration from path (optional, "" means env and defaults
// only) and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("mount.backend", "fuse")
	v.SetDefault("mount.allow_other", false)
	v.SetDefault("mount.foreground", true)
	v.SetDefault("mount.catalog", "")

	v.SetEnvPrefix("SHELFFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Logger builds a slog.Logger on stderr from the logging section. Stdout
// stays free for command output.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch c.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if c.Logging.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}
