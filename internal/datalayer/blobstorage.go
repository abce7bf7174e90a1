package datalayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/glizzus/voice-overlay/internal/config"
)

var ErrNotFound = errors.New("object not found")

type PutOptions struct {
	Size        int64
	ContentType string
}

type ObjectInfo struct {
	Key         string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// BlobStorage stores avatar images under slash-separated keys.
type BlobStorage interface {
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error
	// Get returns ErrNotFound for a missing key. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete returns ErrNotFound for a missing key.
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// NewBlobStorage builds the backend named by cfg.Storage. A MinIO bucket is
// created if it does not exist yet.
func NewBlobStorage(ctx context.Context, cfg *config.AvatarConfig) (BlobStorage, error) {
	switch cfg.Storage {
	case config.AvatarStorageDisk, "":
		storage, err := NewDiskStorage(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk storage: %w", err)
		}
		return storage, nil
	case config.AvatarStorageMinio:
		storage, err := NewMinioStorageFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to create minio storage: %w", err)
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure minio bucket: %w", err)
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown avatar storage %q", cfg.Storage)
	}
}
