// internal/core/ports/views.go
package ports

import (
	"context"

	"github.com/ammerola/finops-console/internal/core/dataview"
	"github.com/ammerola/finops-console/internal/core/domain"
)

// ViewService serves the filtered, sorted and paginated rows of every view
type ViewService interface {
	List(ctx context.Context, view domain.View, params ListParams) (*ListResult, error)
	Table(ctx context.Context, view domain.View, params ListParams) (*dataview.Table, error)
	Facets(ctx context.Context, view domain.View) (map[string][]string, error)
}

// DashboardService builds the dashboard summary
type DashboardService interface {
	Summary(ctx context.Context) (*domain.DashboardSummary, error)
	Invalidate(ctx context.Context) error
}

// ListParams holds the filter, sort and page requested for a view
type ListParams struct {
	Search     string                        `json:"search,omitempty"`
	Selections map[string][]string           `json:"selections,omitempty"`
	Dates      map[string]dataview.DateRange `json:"dates,omitempty"`
	SortBy     string                        `json:"sort_by,omitempty"`
	SortOrder  string                        `json:"sort_order,omitempty"`
	Page       int                           `json:"page"`
	PageSize   int                           `json:"page_size"`
}

// Filters converts the params into a dataview filter state
func (p ListParams) Filters() dataview.FilterState {
	return dataview.FilterState{
		Search:     p.Search,
		Selections: p.Selections,
		Dates:      p.Dates,
	}.Clone()
}

// Sort converts the params into a dataview sort, nil when unsorted
func (p ListParams) Sort() *dataview.SortState {
	if p.SortBy == "" {
		return nil
	}
	return &dataview.SortState{Field: p.SortBy, Direction: dataview.ParseDirection(p.SortOrder)}
}

// ListResult holds one page of a view
type ListResult struct {
	View       domain.View `json:"view"`
	Items      any         `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalCount int64       `json:"total_count"`
	TotalPages int         `json:"total_pages"`
	HasNext    bool        `json:"has_next"`
	Message    string      `json:"message,omitempty"`
}
