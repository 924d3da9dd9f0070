// internal/core/dataview/controller.go
package dataview

import (
	"slices"
	"sync"
	"time"
)

// Controller owns the filter, sort and page state of one tabular view and
// memoizes the derived rows. Filtered rows are recomputed only when the rows
// or filters change, sorted rows only when those or the sort change; a page
// change just reslices.
type Controller[T any] struct {
	mu     sync.Mutex
	schema *Schema[T]
	clock  func() time.Time

	rows    []T
	filters FilterState
	sort    *SortState
	page    PageState
	asOf    time.Time

	rowsGen   uint64
	filterGen uint64
	sortGen   uint64

	filtered memo[T]
	sorted   memo[T]

	filterRuns int
	sortRuns   int
}

type memo[T any] struct {
	valid bool
	key   [3]uint64
	rows  []T
}

// Option configures a Controller
type Option[T any] func(*Controller[T])

// WithPerPage sets the initial page size
func WithPerPage[T any](n int) Option[T] {
	return func(c *Controller[T]) { c.page.PerPage = n }
}

// WithClock overrides the clock used by relative date windows
func WithClock[T any](clock func() time.Time) Option[T] {
	return func(c *Controller[T]) { c.clock = clock }
}

// WithSort sets the initial sort
func WithSort[T any](field string, dir Direction) Option[T] {
	return func(c *Controller[T]) { c.sort = &SortState{Field: field, Direction: dir} }
}

// WithFilters sets the initial filters. Single-select fields keep only their
// last value, as with SetSelection.
func WithFilters[T any](f FilterState) Option[T] {
	return func(c *Controller[T]) { c.filters = f.Clone() }
}

// NewController builds a controller over rows. The rows slice is not copied
// and must not be mutated by the caller afterwards; use SetRows instead.
func NewController[T any](schema *Schema[T], rows []T, opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		schema: schema,
		clock:  time.Now,
		rows:   rows,
		page:   PageState{Page: 1, PerPage: DefaultPerPage},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.page = c.page.Normalize()
	c.trimSingleSelections()
	c.asOf = c.clock()
	return c
}

func (c *Controller[T]) trimSingleSelections() {
	for field, values := range c.filters.Selections {
		if f, ok := c.schema.Field(field); ok && f.Mode == SelectSingle && len(values) > 1 {
			c.filters.Selections[field] = values[len(values)-1:]
		}
	}
}

// Schema returns the row schema
func (c *Controller[T]) Schema() *Schema[T] { return c.schema }

// SetRows replaces the underlying rows and rewinds to page 1
func (c *Controller[T]) SetRows(rows []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = rows
	c.rowsGen++
	c.page = ResetPageOnFilterChange(c.page)
}

// Filters returns a copy of the current filter state
func (c *Controller[T]) Filters() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters.Clone()
}

// SortState returns the current sort, nil when unsorted
func (c *Controller[T]) SortState() *SortState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sort == nil {
		return nil
	}
	s := *c.sort
	return &s
}

// PageState returns the requested page and page size
func (c *Controller[T]) PageState() PageState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// SetSearch sets the free-text search
func (c *Controller[T]) SetSearch(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filters.Search == q {
		return
	}
	c.filters.Search = q
	c.filtersChanged()
}

// SetSelection replaces the selected values of a field. Single-select fields
// keep only the last value. No values clears the selection.
func (c *Controller[T]) SetSelection(field string, values ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSelectionLocked(field, values)
}

// ToggleSelection adds or removes one value from a field's selection
func (c *Controller[T]) ToggleSelection(field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := slices.Clone(c.filters.Selections[field])
	if i := slices.Index(current, value); i >= 0 {
		current = slices.Delete(current, i, i+1)
	} else {
		current = append(current, value)
	}
	c.setSelectionLocked(field, current)
}

func (c *Controller[T]) setSelectionLocked(field string, values []string) {
	if f, ok := c.schema.Field(field); ok && f.Mode == SelectSingle && len(values) > 1 {
		values = values[len(values)-1:]
	}
	if slices.Equal(c.filters.Selections[field], values) {
		return
	}
	if c.filters.Selections == nil {
		c.filters.Selections = make(map[string][]string)
	}
	if len(values) == 0 {
		delete(c.filters.Selections, field)
	} else {
		c.filters.Selections[field] = slices.Clone(values)
	}
	c.filtersChanged()
}

// SetDateRange sets the date range of a timestamp field
func (c *Controller[T]) SetDateRange(field string, r DateRange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.filters.Dates[field]; ok && cur == r {
		return
	}
	if c.filters.Dates == nil {
		c.filters.Dates = make(map[string]DateRange)
	}
	c.filters.Dates[field] = r
	c.filtersChanged()
}

// ClearFilters removes every filter
func (c *Controller[T]) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filters.Search == "" && len(c.filters.Selections) == 0 && len(c.filters.Dates) == 0 {
		return
	}
	c.filters = FilterState{}
	c.filtersChanged()
}

// Refresh re-reads the clock so relative windows move forward
func (c *Controller[T]) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asOf = c.clock()
	c.filterGen++
}

// SetSort toggles the sort on field
func (c *Controller[T]) SetSort(field string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySort(c.sort.Toggle(field))
}

// SortBy sets an explicit sort field and direction
func (c *Controller[T]) SortBy(field string, dir Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySort(&SortState{Field: field, Direction: dir})
}

// ClearSort restores input order
func (c *Controller[T]) ClearSort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySort(nil)
}

// SetPage moves to page n, clamped to the available pages
func (c *Controller[T]) SetPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := len(c.sortedLocked())
	c.page.Page = ClampPage(n, TotalPages(total, c.page.PerPage))
}

// NextPage advances one page if there is one
func (c *Controller[T]) NextPage() {
	c.SetPage(c.PageState().Page + 1)
}

// PrevPage goes back one page
func (c *Controller[T]) PrevPage() {
	c.SetPage(c.PageState().Page - 1)
}

// SetPerPage changes the page size and rewinds to page 1
func (c *Controller[T]) SetPerPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		n = 1
	}
	if n == c.page.PerPage {
		return
	}
	c.page.PerPage = n
	c.page = ResetPageOnFilterChange(c.page)
}

// Visible returns the current page of filtered, sorted rows
func (c *Controller[T]) Visible() Page[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := Paginate(c.sortedLocked(), c.page.Page, c.page.PerPage)
	c.page.Page = p.Page
	return p
}

// All returns every filtered, sorted row across pages
func (c *Controller[T]) All() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sortedLocked())
}

// Count returns the number of rows passing the filters
func (c *Controller[T]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.filteredLocked())
}

func (c *Controller[T]) filtersChanged() {
	c.filterGen++
	c.asOf = c.clock()
	c.page = ResetPageOnFilterChange(c.page)
}

func (c *Controller[T]) applySort(s *SortState) {
	if c.sort.Equal(s) {
		return
	}
	c.sort = s
	c.sortGen++
	total := len(c.filteredLocked())
	c.page.Page = ClampPage(c.page.Page, TotalPages(total, c.page.PerPage))
}

func (c *Controller[T]) filteredLocked() []T {
	key := [3]uint64{c.rowsGen, c.filterGen, 0}
	if c.filtered.valid && c.filtered.key == key {
		return c.filtered.rows
	}
	c.filterRuns++
	c.filtered = memo[T]{
		valid: true,
		key:   key,
		rows:  ApplyFilters(c.rows, c.schema, c.filters, c.asOf),
	}
	return c.filtered.rows
}

func (c *Controller[T]) sortedLocked() []T {
	filtered := c.filteredLocked()
	key := [3]uint64{c.rowsGen, c.filterGen, c.sortGen}
	if c.sorted.valid && c.sorted.key == key {
		return c.sorted.rows
	}
	c.sortRuns++
	c.sorted = memo[T]{
		valid: true,
		key:   key,
		rows:  ApplySort(filtered, c.schema, c.sort),
	}
	return c.sorted.rows
}
