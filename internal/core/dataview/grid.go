// internal/core/dataview/grid.go
package dataview

import "context"

// Grid is the untyped surface of a Controller, used by screens that browse
// any view without knowing its row type
type Grid interface {
	Columns() []Column
	Selectable() []string
	FacetValues(field string) []string

	Filters() FilterState
	SortState() *SortState
	PageState() PageState

	SetSearch(q string)
	ToggleSelection(field, value string)
	SetSort(field string)
	SetPage(n int)
	NextPage()
	PrevPage()
	SetPerPage(n int)
	ClearFilters()
	Refresh()

	VisibleTable() TablePage
	Reload(ctx context.Context) error
}

// TablePage is one rendered page of a grid. Keys holds the row key of each
// table row in the same order.
type TablePage struct {
	Table      *Table
	Keys       []string
	Page       int
	PerPage    int
	TotalCount int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// Empty reports whether the page holds no rows
func (p TablePage) Empty() bool { return p.Table == nil || len(p.Table.Rows) == 0 }

// Columns returns the schema columns in declaration order
func (c *Controller[T]) Columns() []Column {
	fields := c.schema.Fields()
	out := make([]Column, len(fields))
	for i, f := range fields {
		out[i] = Column{Name: f.Name, Kind: f.Kind}
	}
	return out
}

// Selectable returns the names of the fields that accept selections
func (c *Controller[T]) Selectable() []string {
	var out []string
	for _, f := range c.schema.Selectable() {
		out = append(out, f.Name)
	}
	return out
}

// FacetValues returns the distinct values of field across all rows, ignoring filters
func (c *Controller[T]) FacetValues(field string) []string {
	c.mu.Lock()
	rows := c.rows
	c.mu.Unlock()
	values, err := c.schema.Facets(rows, field)
	if err != nil {
		return nil
	}
	return values
}

// VisibleTable renders the current page as a table
func (c *Controller[T]) VisibleTable() TablePage {
	p := c.Visible()
	keys := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		keys[i] = c.schema.Key(r)
	}
	return TablePage{
		Table:      BuildTable(c.schema, p.Rows),
		Keys:       keys,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalCount: p.TotalCount,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

// Loader returns the current rows of a view
type Loader[T any] func(ctx context.Context) ([]T, error)

type loadedGrid[T any] struct {
	*Controller[T]
	load Loader[T]
}

// NewGrid wraps a controller whose rows can be re-read with load. Reload
// keeps the current page when it still exists.
func NewGrid[T any](c *Controller[T], load Loader[T]) Grid {
	return &loadedGrid[T]{Controller: c, load: load}
}

func (g *loadedGrid[T]) Reload(ctx context.Context) error {
	if g.load == nil {
		return nil
	}
	rows, err := g.load(ctx)
	if err != nil {
		return err
	}
	page := g.PageState().Page
	g.SetRows(rows)
	g.SetPage(page)
	return nil
}
