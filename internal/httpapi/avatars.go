package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/glizzus/voice-overlay/internal/avatar"
)

// multipartOverhead leaves room for form boundaries and headers around the image.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	URL string `json:"url"`
}

type uploadsResponse struct {
	Users []avatar.UserUploads `json:"users"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

func (s *Server) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			fail(w, r, avatar.ErrTooLarge)
		default:
			writeError(w, http.StatusBadRequest, "no file")
		}
		return
	}
	defer file.Close()

	url, err := s.avatars.Upload(r.Context(), avatar.UploadRequest{
		UserID:   r.URL.Query().Get("userId"),
		Status:   r.URL.Query().Get("status"),
		Filename: header.Filename,
		Body:     file,
	})
	if err != nil {
		if errors.Is(err, avatar.ErrNoFile) {
			writeError(w, http.StatusBadRequest, "no file")
			return
		}
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{URL: url})
}

func (s *Server) getAvatars(w http.ResponseWriter, r *http.Request) {
	mapping, err := s.avatars.Avatars(r.Context(), r.PathValue("userId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

func (s *Server) myUploads(w http.ResponseWriter, r *http.Request) {
	users, err := s.avatars.Uploads(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadsResponse{Users: users})
}

func (s *Server) deleteAvatar(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.avatars.Delete(r.Context(), r.URL.Query().Get("userId"), r.URL.Query().Get("status"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: deleted})
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	body, info, err := s.avatars.Open(r.Context(), r.PathValue("userId"), r.PathValue("file"))
	if err != nil {
		fail(w, r, err)
		return
	}
	defer body.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if rs, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, info.Key, info.ModTime, rs)
		return
	}
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
