package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type HTTPConfig struct {
	Port               int      `env:"PORT, default=3000"`
	StaticDir          string   `env:"STATIC_DIR, default=."`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*"`
}

func NewHTTPConfig(ctx context.Context, lookuper envconfig.Lookuper) (*HTTPConfig, error) {
	var cfg HTTPConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT out of range: %d", cfg.Port)
	}
	return &cfg, nil
}

func NewHTTPConfigFromEnv() (*HTTPConfig, error) {
	return NewHTTPConfig(context.Background(), nil)
}

func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
