package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/glizzus/voice-overlay/internal/avatar"
	"github.com/glizzus/voice-overlay/internal/datalayer"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, datalayer.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, avatar.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, avatar.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, avatar.ErrInvalidID), errors.Is(err, avatar.ErrNoFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Server errors are logged and
// their details kept from the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, code, "Internal Server Error")
		return
	}
	writeError(w, code, err.Error())
}
