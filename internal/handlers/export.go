// internal/handlers/export.go
package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/pkg/logger"
)

// ExportHandler serves file downloads and export jobs
type ExportHandler struct {
	service ports.ExportService
	encoder ports.Encoder
	clock   func() time.Time
	logger  *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(service ports.ExportService, encoder ports.Encoder, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		service: service,
		encoder: encoder,
		clock:   time.Now,
		logger:  logger.With(slog.String("handler", "export")),
	}
}

// Download handles GET /api/v1/export/{file} where file is "<view>.<format>",
// e.g. queries.csv. Every filtered and sorted row is written, not one page.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, ext, ok := cutExtension(r.PathValue("file"))
	if !ok {
		respondError(w, r, h.logger, http.StatusBadRequest, "expected <view>.<csv|xlsx|json>")
		return
	}
	view, err := domain.ParseView(name)
	if err != nil {
		respondError(w, r, h.logger, http.StatusNotFound, err.Error())
		return
	}
	format, err := ports.ParseFormat(ext)
	if err != nil {
		respondError(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	params, err := ParseListParams(r.URL.Query())
	if err != nil {
		respondError(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	ctx = logger.WithValue(ctx, logger.ContextKeyView, string(view))

	// Buffered so a failed render still yields a JSON error instead of a truncated file
	var buf bytes.Buffer
	rows, err := h.service.Export(ctx, &buf, view, format, params)
	if err != nil {
		respondServiceError(w, r.WithContext(ctx), h.logger, err, "Failed to export view")
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", view, h.clock().UTC().Format("20060102_150405"), format)
	w.Header().Set("Content-Type", h.encoder.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("X-Total-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		h.logger.ErrorContext(ctx, "failed to write export response",
			slog.String("error", err.Error()))
	}
}

// StartJob handles POST /api/v1/export/{view}/jobs?format=xlsx&...
func (h *ExportHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	view, err := domain.ParseView(r.PathValue("view"))
	if err != nil {
		respondError(w, r, h.logger, http.StatusNotFound, err.Error())
		return
	}

	q := r.URL.Query()
	formatName := q.Get("format")
	if formatName == "" {
		formatName = string(ports.FormatCSV)
	}
	format, err := ports.ParseFormat(formatName)
	if err != nil {
		respondError(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	params, err := ParseListParams(q)
	if err != nil {
		respondError(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.service.StartJob(r.Context(), view, format, params)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "Failed to start export job")
		return
	}

	w.Header().Set("Location", "/api/v1/export/jobs/"+job.ID.String())
	respondJSON(w, h.logger, http.StatusAccepted, job)
}

// GetJob handles GET /api/v1/export/jobs/{id}
func (h *ExportHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, r, h.logger, http.StatusBadRequest, "Invalid job ID format")
		return
	}

	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "Failed to load export job")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, job)
}

func cutExtension(file string) (name, ext string, ok bool) {
	i := strings.LastIndexByte(file, '.')
	if i <= 0 || i == len(file)-1 {
		return "", "", false
	}
	return file[:i], file[i+1:], true
}
