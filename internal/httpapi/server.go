// Package httpapi serves the overlay pages, the avatar and member APIs, and
// the overlay WebSocket.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/glizzus/voice-overlay/internal/avatar"
	"github.com/glizzus/voice-overlay/internal/datalayer"
	"github.com/glizzus/voice-overlay/internal/members"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/rs/cors"
)

type AvatarService interface {
	Upload(ctx context.Context, req avatar.UploadRequest) (string, error)
	Avatars(ctx context.Context, userID string) (map[string]string, error)
	Uploads(ctx context.Context) ([]avatar.UserUploads, error)
	Delete(ctx context.Context, userID, status string) (bool, error)
	Open(ctx context.Context, userID, filename string) (io.ReadCloser, datalayer.ObjectInfo, error)
}

var _ AvatarService = (*avatar.Service)(nil)

type MemberDirectory interface {
	InChannel(ctx context.Context, channelID string) (members.Channel, error)
	All(ctx context.Context) ([]members.GuildMember, error)
}

var _ MemberDirectory = (*members.Directory)(nil)

type StatusSnapshot interface {
	All(ctx context.Context) (map[string]status.Status, error)
}

type Config struct {
	StaticDir      string
	AllowedOrigins []string
	// MaxUploadBytes bounds the multipart request body.
	MaxUploadBytes int64
}

type Server struct {
	cfg      Config
	avatars  AvatarService
	members  MemberDirectory
	statuses StatusSnapshot
	overlay  http.Handler
	metrics  http.Handler
}

type Deps struct {
	Avatars  AvatarService
	Members  MemberDirectory
	Statuses StatusSnapshot
	// Overlay serves /ws.
	Overlay http.Handler
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewServer(cfg Config, deps Deps) *Server {
	if cfg.StaticDir == "" {
		cfg.StaticDir = "."
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = avatar.DefaultMaxBytes
	}
	return &Server{
		cfg:      cfg,
		avatars:  deps.Avatars,
		members:  deps.Members,
		statuses: deps.Statuses,
		overlay:  deps.Overlay,
		metrics:  deps.Metrics,
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.page("index.html"))
	mux.HandleFunc("GET /index", s.page("index.html"))
	mux.HandleFunc("GET /setting", s.page("setting.html"))
	mux.HandleFunc("GET /overlay", s.page("overlay.html"))
	mux.HandleFunc("GET /add", s.page("add.html"))
	mux.Handle("GET /icons/", http.StripPrefix("/icons/",
		http.FileServer(http.Dir(filepath.Join(s.cfg.StaticDir, "icons")))))

	mux.HandleFunc("GET /uploads/{userId}/{file}", s.serveUpload)
	mux.HandleFunc("POST /upload-avatar", s.uploadAvatar)
	mux.HandleFunc("GET /avatars/{userId}", s.getAvatars)
	mux.HandleFunc("GET /my-uploads", s.myUploads)
	mux.HandleFunc("DELETE /delete-avatar", s.deleteAvatar)

	mux.HandleFunc("GET /members", s.channelMembers)
	mux.HandleFunc("GET /all-members", s.allMembers)
	mux.HandleFunc("GET /statuses", s.getStatuses)

	if s.overlay != nil {
		mux.Handle("GET /ws", s.overlay)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("Web server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	return nil
}

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(s.cfg.StaticDir, name))
	}
}
