package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// RedisConfig is optional. Without REDIS_ADDR the status snapshot stays in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`

	// StreamMaxLen caps the status event stream.
	StreamMaxLen int64 `env:"REDIS_STREAM_MAXLEN, default=10000"`
}

func NewRedisConfig(ctx context.Context, lookuper envconfig.Lookuper) (*RedisConfig, error) {
	var cfg RedisConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	return NewRedisConfig(context.Background(), nil)
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
