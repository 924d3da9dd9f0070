// internal/handlers/recommendations.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

// RecommendationHandler changes the status of cost recommendations
type RecommendationHandler struct {
	service ports.RecommendationService
	logger  *slog.Logger
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(service ports.RecommendationService, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "recommendations")),
	}
}

// Get handles GET /api/v1/recommendations/{id}
func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "Failed to load recommendation")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, rec)
}

// Resolve handles POST /api/v1/recommendations/{id}/resolve
func (h *RecommendationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "resolve", h.service.Resolve)
}

// Dismiss handles POST /api/v1/recommendations/{id}/dismiss
func (h *RecommendationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "dismiss", h.service.Dismiss)
}

// Reopen handles POST /api/v1/recommendations/{id}/reopen
func (h *RecommendationHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reopen", h.service.Reopen)
}

func (h *RecommendationHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	apply func(context.Context, string) (*domain.Recommendation, error),
) {
	ctx := r.Context()
	id := r.PathValue("id")

	rec, err := apply(ctx, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "Failed to update recommendation")
		return
	}

	h.logger.InfoContext(ctx, "recommendation updated",
		slog.String("recommendation_id", id),
		slog.String("action", action),
		slog.String("status", string(rec.Status)))

	respondJSON(w, h.logger, http.StatusOK, rec)
}
