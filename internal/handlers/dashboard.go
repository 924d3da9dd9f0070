// internal/handlers/dashboard.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammerola/finops-console/internal/core/ports"
)

// DashboardHandler serves the spend overview
type DashboardHandler struct {
	service ports.DashboardService
	logger  *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service ports.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "dashboard")),
	}
}

// GetDashboard handles GET /api/v1/dashboard. ?refresh=true drops the cached
// summary first.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("refresh") == "true" {
		if err := h.service.Invalidate(ctx); err != nil {
			h.logger.WarnContext(ctx, "failed to invalidate dashboard cache",
				slog.String("error", err.Error()))
		}
	}

	summary, err := h.service.Summary(ctx)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "Failed to load dashboard")
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, h.logger, http.StatusOK, summary)
}
