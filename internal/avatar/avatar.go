// Package avatar manages the custom images overlays show for each status.
package avatar

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/glizzus/voice-overlay/internal/datalayer"
	"github.com/glizzus/voice-overlay/internal/repository"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/glizzus/voice-overlay/internal/telemetry"
	"github.com/glizzus/voice-overlay/internal/util"
)

const (
	DefaultUserID   = "defaultUser"
	DefaultStatus   = "custom"
	DefaultMaxBytes = 8 << 20
	defaultExt      = ".png"
)

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrNoFile          = errors.New("no file")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var allowedTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

type UploadRequest struct {
	UserID   string
	Status   string
	Filename string
	Body     io.Reader
}

type UploadedAvatar struct {
	URL        string `json:"url"`
	UploadedAt int64  `json:"uploadedAt"`
}

type UserUploads struct {
	ID        string                    `json:"id"`
	Username  string                    `json:"username"`
	Avatars   map[string]UploadedAvatar `json:"avatars"`
	UpdatedAt int64                     `json:"updatedAt"`
}

type Service struct {
	blobs    datalayer.BlobStorage
	meta     repository.AvatarMetaRepository
	maxBytes int64
	now      func() time.Time
}

type Option func(*Service)

func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(blobs datalayer.BlobStorage, meta repository.AvatarMetaRepository, opts ...Option) *Service {
	s := &Service{
		blobs:    blobs,
		meta:     meta,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validID(kind, id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s %q: %w", kind, id, ErrInvalidID)
	}
	return nil
}

func withDefaults(userID, st string) (string, string, error) {
	if userID == "" {
		userID = DefaultUserID
	}
	if st == "" {
		st = DefaultStatus
	}
	if err := validID("user id", userID); err != nil {
		return "", "", err
	}
	if err := validID("status", st); err != nil {
		return "", "", err
	}
	return userID, st, nil
}

func key(userID, filename string) string {
	return userID + "/" + filename
}

func uploadURL(userID, filename string) string {
	return "/uploads/" + key(userID, filename)
}

func iconURL(st status.Status) string {
	return "/icons/" + string(st) + ".png"
}

// matchesStatus reports whether filename is an image for st, whatever its extension.
func matchesStatus(filename, st string) bool {
	return strings.HasPrefix(strings.ToLower(filename), strings.ToLower(st)+".")
}

func extension(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if ext == "" || !idPattern.MatchString(strings.TrimPrefix(ext, ".")) {
		return defaultExt
	}
	return ext
}

// Upload stores an image for the user and status and returns its
// cache-busting URL. Earlier images for the same status are replaced.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (string, error) {
	userID, st, err := withDefaults(req.UserID, req.Status)
	if err != nil {
		return "", err
	}
	if req.Body == nil {
		return "", ErrNoFile
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(req.Body, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if n == 0 {
		return "", ErrNoFile
	}
	if n > s.maxBytes {
		return "", fmt.Errorf("%d bytes allowed: %w", s.maxBytes, ErrTooLarge)
	}

	contentType := http.DetectContentType(buf.Bytes())
	if !slices.Contains(allowedTypes, contentType) {
		return "", fmt.Errorf("%s: %w", contentType, ErrUnsupportedType)
	}

	filename := st + extension(req.Filename)
	if err := s.blobs.Put(ctx, key(userID, filename), &buf, datalayer.PutOptions{
		Size:        n,
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}
	s.removeStale(ctx, userID, st, filename)

	uploadedAt := s.now().UnixMilli()
	if err := s.meta.Put(ctx, userID, st, repository.AvatarEntry{
		Filename:   filename,
		UploadedAt: uploadedAt,
	}); err != nil {
		return "", fmt.Errorf("failed to record avatar: %w", err)
	}

	telemetry.Inc(telemetry.AvatarUploads)
	slog.Info("avatar uploaded", "userID", userID, "status", st, "filename", filename, "bytes", n)
	return fmt.Sprintf("%s?v=%d", uploadURL(userID, filename), uploadedAt), nil
}

func (s *Service) removeStale(ctx context.Context, userID, st, keep string) {
	objects, err := s.blobs.List(ctx, userID+"/")
	if err != nil {
		slog.Warn("failed to list avatars", "userID", userID, "error", err)
		return
	}
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if name == keep || !matchesStatus(name, st) {
			continue
		}
		if err := s.blobs.Delete(ctx, obj.Key); err != nil && !errors.Is(err, datalayer.ErrNotFound) {
			slog.Warn("failed to remove replaced avatar", "key", obj.Key, "error", err)
		}
	}
}

// Avatars maps each overlay status to the image the user's overlay shows.
// Statuses without an upload fall back to the bundled icon.
func (s *Service) Avatars(ctx context.Context, userID string) (map[string]string, error) {
	if err := validID("user id", userID); err != nil {
		return nil, err
	}
	objects, err := s.blobs.List(ctx, userID+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list avatars: %w", err)
	}

	mapping := make(map[string]string, len(status.AvatarStatuses))
	for _, st := range status.AvatarStatuses {
		obj, ok := util.FindFirst(objects, func(o datalayer.ObjectInfo) bool {
			return matchesStatus(path.Base(o.Key), string(st))
		})
		if !ok {
			mapping[string(st)] = iconURL(st)
			continue
		}
		mapping[string(st)] = fmt.Sprintf("%s?v=%d", uploadURL(userID, path.Base(obj.Key)), obj.ModTime.UnixMilli())
	}
	return mapping, nil
}

// Uploads lists every user with uploads, most recently updated first.
func (s *Service) Uploads(ctx context.Context) ([]UserUploads, error) {
	meta, err := s.meta.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar meta: %w", err)
	}

	users := make([]UserUploads, 0, len(meta))
	for userID, byStatus := range meta {
		u := UserUploads{
			ID:       userID,
			Username: "User " + userID,
			Avatars:  make(map[string]UploadedAvatar, len(byStatus)),
		}
		for st, entry := range byStatus {
			u.Avatars[st] = UploadedAvatar{
				URL:        uploadURL(userID, entry.Filename),
				UploadedAt: entry.UploadedAt,
			}
			u.UpdatedAt = max(u.UpdatedAt, entry.UploadedAt)
		}
		users = append(users, u)
	}

	slices.SortFunc(users, func(a, b UserUploads) int {
		if c := cmp.Compare(b.UpdatedAt, a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return users, nil
}

// Delete removes the user's image for a status. It reports false when there
// was nothing to delete.
func (s *Service) Delete(ctx context.Context, userID, st string) (bool, error) {
	userID, st, err := withDefaults(userID, st)
	if err != nil {
		return false, err
	}

	objects, err := s.blobs.List(ctx, userID+"/")
	if err != nil {
		return false, fmt.Errorf("failed to list avatars: %w", err)
	}
	obj, ok := util.FindFirst(objects, func(o datalayer.ObjectInfo) bool {
		return matchesStatus(path.Base(o.Key), st)
	})
	if !ok {
		return false, nil
	}

	if err := s.blobs.Delete(ctx, obj.Key); err != nil {
		if errors.Is(err, datalayer.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete avatar: %w", err)
	}
	if _, err := s.meta.Remove(ctx, userID, st); err != nil {
		return true, fmt.Errorf("failed to update avatar meta: %w", err)
	}

	telemetry.Inc(telemetry.AvatarDeletes)
	slog.Info("avatar deleted", "userID", userID, "status", st, "key", obj.Key)
	return true, nil
}

// Open returns an uploaded image for serving.
func (s *Service) Open(ctx context.Context, userID, filename string) (io.ReadCloser, datalayer.ObjectInfo, error) {
	if err := validID("user id", userID); err != nil {
		return nil, datalayer.ObjectInfo{}, err
	}
	if filename == "" || filename != path.Base(filename) || strings.HasPrefix(filename, ".") {
		return nil, datalayer.ObjectInfo{}, fmt.Errorf("filename %q: %w", filename, ErrInvalidID)
	}
	return s.blobs.Get(ctx, key(userID, filename))
}
