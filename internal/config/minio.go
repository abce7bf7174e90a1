package config

import (
	"context"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// MinioConfig is only read when AVATAR_STORAGE=minio.
type MinioConfig struct {
	Endpoint string `env:"MINIO_ENDPOINT, required"`
	Username string `env:"MINIO_USERNAME, required"`
	Password string `env:"MINIO_PASSWORD, required"`
	Bucket   string `env:"MINIO_BUCKET, default=voice-overlay"`
	Secure   bool   `env:"MINIO_SECURE, default=false"`
}

// NewMinioConfig accepts MINIO_ENDPOINT as host:port or as a URL. A URL's
// scheme is dropped, and https turns Secure on.
func NewMinioConfig(ctx context.Context, lookuper envconfig.Lookuper) (*MinioConfig, error) {
	var cfg MinioConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(cfg.Endpoint, "https://"):
		cfg.Endpoint = strings.TrimPrefix(cfg.Endpoint, "https://")
		cfg.Secure = true
	case strings.HasPrefix(cfg.Endpoint, "http://"):
		cfg.Endpoint = strings.TrimPrefix(cfg.Endpoint, "http://")
	}
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	return &cfg, nil
}

func NewMinioConfigFromEnv() (*MinioConfig, error) {
	return NewMinioConfig(context.Background(), nil)
}
