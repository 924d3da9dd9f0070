// internal/handlers/views.go
package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ammerola/finops-console/internal/core/dataview"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/internal/pkg/logger"
)

const (
	filterParamPrefix = "filter."
	dateParamPrefix   = "date."
	dateRangeSep      = ".."
	dateLayout        = "2006-01-02"
)

// ViewHandler serves the tabular views
type ViewHandler struct {
	views  ports.ViewService
	logger *slog.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(views ports.ViewService, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{
		views:  views,
		logger: logger.With(slog.String("handler", "views")),
	}
}

// ListViews handles GET /api/v1/views
func (h *ViewHandler) ListViews(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"views":   domain.Views,
		"windows": dataview.Windows,
	})
}

// List handles GET /api/v1/views/{view}
func (h *ViewHandler) List(w http.ResponseWriter, r *http.Request) {
	view, ok := h.parseView(w, r)
	if !ok {
		return
	}
	ctx := logger.WithValue(r.Context(), logger.ContextKeyView, string(view))

	params, err := ParseListParams(r.URL.Query())
	if err != nil {
		respondError(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.views.List(ctx, view, params)
	if err != nil {
		respondServiceError(w, r.WithContext(ctx), h.logger, err, "Failed to list view")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// Facets handles GET /api/v1/views/{view}/facets
func (h *ViewHandler) Facets(w http.ResponseWriter, r *http.Request) {
	view, ok := h.parseView(w, r)
	if !ok {
		return
	}

	facets, err := h.views.Facets(r.Context(), view)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "Failed to load facets")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, facets)
}

func (h *ViewHandler) parseView(w http.ResponseWriter, r *http.Request) (domain.View, bool) {
	view, err := domain.ParseView(r.PathValue("view"))
	if err != nil {
		respondError(w, r, h.logger, http.StatusNotFound, err.Error())
		return "", false
	}
	return view, true
}

// ParseListParams reads list options from a query string. Page numbers and
// sizes that do not parse are ignored so the service defaults apply; a date
// value that does not parse is a client error.
//
//	search=etl&filter.status=Failed,Running&date.started_at=7d&sort=credits&order=desc&page=2&limit=25
//	date.started_at=2025-03-01..2025-03-15
func ParseListParams(q url.Values) (ports.ListParams, error) {
	params := ports.ListParams{
		Search:    strings.TrimSpace(q.Get("search")),
		SortBy:    q.Get("sort"),
		SortOrder: strings.ToLower(q.Get("order")),
	}

	if p, err := strconv.Atoi(q.Get("page")); err == nil {
		params.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		params.PageSize = l
	}

	for key, values := range q {
		switch {
		case strings.HasPrefix(key, filterParamPrefix):
			field := strings.TrimPrefix(key, filterParamPrefix)
			selected := splitValues(values)
			if field == "" || len(selected) == 0 {
				continue
			}
			if params.Selections == nil {
				params.Selections = make(map[string][]string)
			}
			params.Selections[field] = selected

		case strings.HasPrefix(key, dateParamPrefix):
			field := strings.TrimPrefix(key, dateParamPrefix)
			if field == "" || len(values) == 0 {
				continue
			}
			rng, err := parseDateRange(values[len(values)-1])
			if err != nil {
				return params, err
			}
			if params.Dates == nil {
				params.Dates = make(map[string]dataview.DateRange)
			}
			params.Dates[field] = rng
		}
	}

	return services.NormalizeParams(params), nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseDateRange accepts a window tag ("24h", "7d", "All") or an explicit
// "start..end" range where either side may be empty.
func parseDateRange(v string) (dataview.DateRange, error) {
	v = strings.TrimSpace(v)
	if !strings.Contains(v, dateRangeSep) {
		return dataview.Window(v), nil
	}

	startStr, endStr, _ := strings.Cut(v, dateRangeSep)
	var start, end time.Time
	var err error
	if startStr != "" {
		if start, err = time.Parse(dateLayout, startStr); err != nil {
			return dataview.DateRange{}, &paramError{value: startStr}
		}
	}
	if endStr != "" {
		if end, err = time.Parse(dateLayout, endStr); err != nil {
			return dataview.DateRange{}, &paramError{value: endStr}
		}
	}
	return dataview.Between(start, end), nil
}

type paramError struct {
	value string
}

func (e *paramError) Error() string {
	return "invalid date " + strconv.Quote(e.value) + ", expected YYYY-MM-DD"
}
