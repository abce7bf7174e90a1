package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// LoadEnv loads variables from .env files into the process environment.
// Variables that are already set win. With no arguments ".env" is read.
func LoadEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}

func process(ctx context.Context, target any, lookuper envconfig.Lookuper) error {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	return envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   target,
		Lookuper: lookuper,
	})
}

type LoggingConfig struct {
	Level string `env:"LOG_LEVEL, default=info"`
}

func NewLoggingConfig(ctx context.Context, lookuper envconfig.Lookuper) (*LoggingConfig, error) {
	var cfg LoggingConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func NewLoggingConfigFromEnv() (*LoggingConfig, error) {
	return NewLoggingConfig(context.Background(), nil)
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c *LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}
	return level, nil
}
