// internal/handlers/preferences.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ammerola/finops-console/internal/core/ports"
)

const maxPreferenceBody = 4 << 10

// PreferenceRequest is the body of PUT /api/v1/preferences/{key}
type PreferenceRequest struct {
	Value string `json:"value"`
}

// PreferenceHandler reads and writes UI preferences
type PreferenceHandler struct {
	store  ports.PreferenceStore
	logger *slog.Logger
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(store ports.PreferenceStore, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "preferences")),
	}
}

// Get handles GET /api/v1/preferences/{key}
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	value, err := h.store.Get(r.Context(), key)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "Failed to load preference")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{"key": key, "value": value})
}

// Put handles PUT /api/v1/preferences/{key}
func (h *PreferenceHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if strings.TrimSpace(key) == "" {
		respondError(w, r, h.logger, http.StatusBadRequest, "preference key is required")
		return
	}

	var req PreferenceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreferenceBody)).Decode(&req); err != nil {
		respondError(w, r, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.Set(r.Context(), key, req.Value); err != nil {
		respondServiceError(w, r, h.logger, err, "Failed to save preference")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}
