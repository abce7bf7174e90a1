package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sethvargo/go-envconfig"
)

const (
	AvatarStorageDisk  = "disk"
	AvatarStorageMinio = "minio"
)

type AvatarConfig struct {
	Storage   string `env:"AVATAR_STORAGE, default=disk"`
	UploadDir string `env:"UPLOAD_DIR, default=uploads"`
	// MetaPath defaults to meta.json inside UploadDir.
	MetaPath string `env:"AVATAR_META_PATH"`
	MaxBytes int64  `env:"AVATAR_MAX_BYTES, default=8388608"`
}

func NewAvatarConfig(ctx context.Context, lookuper envconfig.Lookuper) (*AvatarConfig, error) {
	var cfg AvatarConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	switch cfg.Storage {
	case AvatarStorageDisk, AvatarStorageMinio:
	default:
		return nil, fmt.Errorf("AVATAR_STORAGE must be %q or %q, got %q", AvatarStorageDisk, AvatarStorageMinio, cfg.Storage)
	}
	if cfg.MaxBytes <= 0 {
		return nil, fmt.Errorf("AVATAR_MAX_BYTES must be positive, got %d", cfg.MaxBytes)
	}
	if cfg.MetaPath == "" {
		cfg.MetaPath = filepath.Join(cfg.UploadDir, "meta.json")
	}
	return &cfg, nil
}

func NewAvatarConfigFromEnv() (*AvatarConfig, error) {
	return NewAvatarConfig(context.Background(), nil)
}
