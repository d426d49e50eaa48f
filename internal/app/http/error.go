package apphttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/domain/repository"
	"github.com/screensound/catalog/internal/httpx"
)

type errorResp struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResp{
		Error:     http.StatusText(status),
		Message:   msg,
		RequestID: httpx.RequestIDFromCtx(r.Context()),
	})
}

// statusOf maps error kinds to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrIdentityImmutable):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrPersistence):
		return http.StatusConflict
	case errors.Is(err, repository.ErrConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		msg = http.StatusText(status)
	}
	writeError(w, r, status, msg)
}
