// internal/handlers/response.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/pkg/logger"
)

// ErrorResponse is the body of every non-2xx JSON reply
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, l *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		l.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, l *slog.Logger, status int, message string) {
	respondJSON(w, l, status, ErrorResponse{
		Error:     message,
		RequestID: logger.RequestID(r.Context()),
	})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusConflict
	case errors.Is(err, ports.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrPreferenceNotSet):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError logs err and replies with the mapped status. Server
// errors hide the cause behind fallback; client errors echo it.
func respondServiceError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), fallback, slog.String("error", err.Error()))
		respondError(w, r, l, status, fallback)
		return
	}
	l.WarnContext(r.Context(), "request rejected",
		slog.Int("status", status),
		slog.String("error", err.Error()))
	respondError(w, r, l, status, err.Error())
}
