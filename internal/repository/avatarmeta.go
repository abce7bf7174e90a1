package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// AvatarEntry records one uploaded avatar image.
type AvatarEntry struct {
	Filename string `json:"filename"`
	// UploadedAt is in Unix milliseconds.
	UploadedAt int64 `json:"uploadedAt"`
}

// AvatarMeta maps user id to status to the avatar uploaded for it.
type AvatarMeta map[string]map[string]AvatarEntry

func (m AvatarMeta) clone() AvatarMeta {
	out := make(AvatarMeta, len(m))
	for userID, byStatus := range m {
		out[userID] = maps.Clone(byStatus)
	}
	return out
}

type AvatarMetaRepository interface {
	Put(ctx context.Context, userID, status string, entry AvatarEntry) error
	// Remove reports whether an entry existed.
	Remove(ctx context.Context, userID, status string) (bool, error)
	All(ctx context.Context) (AvatarMeta, error)
}

// JSONAvatarMetaRepository keeps AvatarMeta in a single JSON file. A missing
// file reads as empty. Writes replace the file atomically.
type JSONAvatarMetaRepository struct {
	path string
	mu   sync.Mutex
}

func NewJSONAvatarMetaRepository(path string) *JSONAvatarMetaRepository {
	return &JSONAvatarMetaRepository{path: path}
}

var _ AvatarMetaRepository = (*JSONAvatarMetaRepository)(nil)

func (r *JSONAvatarMetaRepository) Put(_ context.Context, userID, status string, entry AvatarEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, err := r.load()
	if err != nil {
		return err
	}
	if meta[userID] == nil {
		meta[userID] = make(map[string]AvatarEntry)
	}
	meta[userID][status] = entry
	return r.save(meta)
}

func (r *JSONAvatarMetaRepository) Remove(_ context.Context, userID, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, err := r.load()
	if err != nil {
		return false, err
	}
	if _, ok := meta[userID][status]; !ok {
		return false, nil
	}
	delete(meta[userID], status)
	return true, r.save(meta)
}

func (r *JSONAvatarMetaRepository) All(_ context.Context) (AvatarMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *JSONAvatarMetaRepository) load() (AvatarMeta, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return AvatarMeta{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar meta: %w", err)
	}

	meta := AvatarMeta{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse avatar meta %s: %w", r.path, err)
	}
	return meta, nil
}

func (r *JSONAvatarMetaRepository) save(meta AvatarMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode avatar meta: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create meta directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".meta-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp meta file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write avatar meta: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close avatar meta: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace avatar meta: %w", err)
	}
	return nil
}

// MemoryAvatarMetaRepository is an in-memory AvatarMetaRepository.
type MemoryAvatarMetaRepository struct {
	mu   sync.Mutex
	meta AvatarMeta
}

func NewMemoryAvatarMetaRepository() *MemoryAvatarMetaRepository {
	return &MemoryAvatarMetaRepository{meta: AvatarMeta{}}
}

var _ AvatarMetaRepository = (*MemoryAvatarMetaRepository)(nil)

func (r *MemoryAvatarMetaRepository) Put(_ context.Context, userID, status string, entry AvatarEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.meta[userID] == nil {
		r.meta[userID] = make(map[string]AvatarEntry)
	}
	r.meta[userID][status] = entry
	return nil
}

func (r *MemoryAvatarMetaRepository) Remove(_ context.Context, userID, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meta[userID][status]; !ok {
		return false, nil
	}
	delete(r.meta[userID], status)
	return true, nil
}

func (r *MemoryAvatarMetaRepository) All(_ context.Context) (AvatarMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meta.clone(), nil
}
