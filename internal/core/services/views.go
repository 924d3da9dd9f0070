// internal/core/services/views.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ammerola/finops-console/internal/core/dataview"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

// Page size limits applied to API requests
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ViewService answers list requests for every view by running the fixture
// rows through a dataview controller
type ViewService struct {
	data   *domain.Dataset
	recs   ports.RecommendationService
	clock  func() time.Time
	logger *slog.Logger
}

// Statically assert that *ViewService implements the ViewService interface.
var _ ports.ViewService = (*ViewService)(nil)

// NewViewService creates a view service. Recommendations are read from recs
// so status changes show up immediately.
func NewViewService(data *domain.Dataset, recs ports.RecommendationService, logger *slog.Logger) *ViewService {
	return &ViewService{
		data:   data,
		recs:   recs,
		clock:  time.Now,
		logger: logger.With(slog.String("service", "views")),
	}
}

// WithClock overrides the clock used by relative date windows
func (s *ViewService) WithClock(clock func() time.Time) *ViewService {
	s.clock = clock
	return s
}

// List returns one page of a view
func (s *ViewService) List(ctx context.Context, view domain.View, params ports.ListParams) (*ports.ListResult, error) {
	params = NormalizeParams(params)

	var (
		result *ports.ListResult
		err    error
	)
	switch view {
	case domain.ViewQueries:
		result = listPage(domain.QuerySchema, s.data.Queries, params, s.clock)
	case domain.ViewWarehouses:
		result = listPage(domain.WarehouseSchema, s.data.Warehouses, params, s.clock)
	case domain.ViewRecommendations:
		result = listPage(domain.RecommendationSchema, s.recs.List(ctx), params, s.clock)
	case domain.ViewAssignedQueries:
		result = listPage(domain.AssignedQuerySchema, s.data.AssignedQueries, params, s.clock)
	case domain.ViewActivityLogs:
		result = listPage(domain.ActivityLogSchema, s.data.ActivityLogs, params, s.clock)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrUnknownView, view)
	}
	if err != nil {
		return nil, err
	}

	result.View = view
	if result.TotalCount == 0 {
		result.Message = view.EmptyMessage()
	}

	s.logger.DebugContext(ctx, "listed view",
		slog.String("view", string(view)),
		slog.Int("page", result.Page),
		slog.Int64("total", result.TotalCount))

	return result, nil
}

// Table returns every filtered, sorted row of a view as a table, ignoring pagination
func (s *ViewService) Table(ctx context.Context, view domain.View, params ports.ListParams) (*dataview.Table, error) {
	switch view {
	case domain.ViewQueries:
		return tableOf(domain.QuerySchema, s.data.Queries, params, s.clock), nil
	case domain.ViewWarehouses:
		return tableOf(domain.WarehouseSchema, s.data.Warehouses, params, s.clock), nil
	case domain.ViewRecommendations:
		return tableOf(domain.RecommendationSchema, s.recs.List(ctx), params, s.clock), nil
	case domain.ViewAssignedQueries:
		return tableOf(domain.AssignedQuerySchema, s.data.AssignedQueries, params, s.clock), nil
	case domain.ViewActivityLogs:
		return tableOf(domain.ActivityLogSchema, s.data.ActivityLogs, params, s.clock), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownView, view)
	}
}

// Facets returns the distinct values of every selectable field of a view
func (s *ViewService) Facets(ctx context.Context, view domain.View) (map[string][]string, error) {
	switch view {
	case domain.ViewQueries:
		return facetsOf(domain.QuerySchema, s.data.Queries), nil
	case domain.ViewWarehouses:
		return facetsOf(domain.WarehouseSchema, s.data.Warehouses), nil
	case domain.ViewRecommendations:
		return facetsOf(domain.RecommendationSchema, s.recs.List(ctx)), nil
	case domain.ViewAssignedQueries:
		return facetsOf(domain.AssignedQuerySchema, s.data.AssignedQueries), nil
	case domain.ViewActivityLogs:
		return facetsOf(domain.ActivityLogSchema, s.data.ActivityLogs), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownView, view)
	}
}

// Grid returns a live controller over a view for interactive browsing.
// Recommendations are re-read from the service on Reload.
func (s *ViewService) Grid(ctx context.Context, view domain.View, params ports.ListParams) (dataview.Grid, error) {
	params = NormalizeParams(params)
	switch view {
	case domain.ViewQueries:
		return staticGrid(domain.QuerySchema, s.data.Queries, params, s.clock), nil
	case domain.ViewWarehouses:
		return staticGrid(domain.WarehouseSchema, s.data.Warehouses, params, s.clock), nil
	case domain.ViewRecommendations:
		c := NewController(domain.RecommendationSchema, s.recs.List(ctx), params, s.clock)
		return dataview.NewGrid(c, func(ctx context.Context) ([]domain.Recommendation, error) {
			return s.recs.List(ctx), nil
		}), nil
	case domain.ViewAssignedQueries:
		return staticGrid(domain.AssignedQuerySchema, s.data.AssignedQueries, params, s.clock), nil
	case domain.ViewActivityLogs:
		return staticGrid(domain.ActivityLogSchema, s.data.ActivityLogs, params, s.clock), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownView, view)
	}
}

// NormalizeParams clamps the page to at least 1 and the page size into [1, MaxPageSize]
func NormalizeParams(p ports.ListParams) ports.ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// NewController builds a dataview controller configured from list params
func NewController[T any](schema *dataview.Schema[T], rows []T, p ports.ListParams, clock func() time.Time) *dataview.Controller[T] {
	opts := []dataview.Option[T]{
		dataview.WithFilters[T](p.Filters()),
		dataview.WithClock[T](clock),
	}
	if p.PageSize > 0 {
		opts = append(opts, dataview.WithPerPage[T](p.PageSize))
	}
	if s := p.Sort(); s != nil {
		if _, ok := schema.Field(s.Field); ok {
			opts = append(opts, dataview.WithSort[T](s.Field, s.Direction))
		}
	}
	c := dataview.NewController(schema, rows, opts...)
	if p.Page > 1 {
		c.SetPage(p.Page)
	}
	return c
}

func listPage[T any](schema *dataview.Schema[T], rows []T, p ports.ListParams, clock func() time.Time) *ports.ListResult {
	page := NewController(schema, rows, p, clock).Visible()
	return &ports.ListResult{
		Items:      page.Rows,
		Page:       page.Page,
		PageSize:   page.PerPage,
		TotalCount: int64(page.TotalCount),
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
	}
}

func tableOf[T any](schema *dataview.Schema[T], rows []T, p ports.ListParams, clock func() time.Time) *dataview.Table {
	return dataview.BuildTable(schema, NewController(schema, rows, p, clock).All())
}

func staticGrid[T any](schema *dataview.Schema[T], rows []T, p ports.ListParams, clock func() time.Time) dataview.Grid {
	return dataview.NewGrid(NewController(schema, rows, p, clock), nil)
}

func facetsOf[T any](schema *dataview.Schema[T], rows []T) map[string][]string {
	out := make(map[string][]string)
	for _, f := range schema.Selectable() {
		values, err := schema.Facets(rows, f.Name)
		if err != nil {
			continue
		}
		out[f.Name] = values
	}
	return out
}
