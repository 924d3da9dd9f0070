package dataview_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/finops-console/internal/core/dataview"
)

func newController(rows []row, opts ...dataview.Option[row]) *dataview.Controller[row] {
	opts = append([]dataview.Option[row]{dataview.WithClock[row](func() time.Time { return testNow })}, opts...)
	return dataview.NewController(rowSchema, rows, opts...)
}

func TestController_SearchScenario(t *testing.T) {
	c := newController(makeRows(200), dataview.WithPerPage[row](10))

	c.SetSearch("01a")
	c.SetPage(3)

	p := c.Visible()
	require.Len(t, p.Rows, 10)
	assert.Equal(t, "01a00020", p.Rows[0].ID)
	assert.Equal(t, "01a00029", p.Rows[9].ID)
	assert.Equal(t, 3, p.Page)
	assert.True(t, p.HasNext)
}

func TestController_FilterChangesResetPage(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *dataview.Controller[row])
	}{
		{name: "search", mutate: func(c *dataview.Controller[row]) { c.SetSearch("query") }},
		{name: "selection", mutate: func(c *dataview.Controller[row]) { c.SetSelection("status", "Succeeded") }},
		{name: "toggle_selection", mutate: func(c *dataview.Controller[row]) { c.ToggleSelection("status", "Succeeded") }},
		{name: "date_range", mutate: func(c *dataview.Controller[row]) { c.SetDateRange("started_at", dataview.Window("90d")) }},
		{name: "per_page", mutate: func(c *dataview.Controller[row]) { c.SetPerPage(5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(makeRows(200), dataview.WithPerPage[row](10))
			c.SetPage(4)
			require.Equal(t, 4, c.PageState().Page)

			tt.mutate(c)
			assert.Equal(t, 1, c.PageState().Page)
			assert.Equal(t, 1, c.Visible().Page)
		})
	}
}

func TestController_SortKeepsPage(t *testing.T) {
	c := newController(makeRows(200), dataview.WithPerPage[row](10))
	c.SetPage(4)

	c.SetSort("credits")
	assert.Equal(t, 4, c.PageState().Page)
	assert.Equal(t, &dataview.SortState{Field: "credits", Direction: dataview.Ascending}, c.SortState())

	c.SetSort("credits")
	assert.Equal(t, dataview.Descending, c.SortState().Direction)

	c.SetSort("name")
	assert.Equal(t, dataview.Ascending, c.SortState().Direction)

	c.ClearSort()
	assert.Nil(t, c.SortState())
	assert.Equal(t, "01a00030", c.Visible().Rows[0].ID)
}

func TestController_SetPageClamps(t *testing.T) {
	c := newController(makeRows(25), dataview.WithPerPage[row](10))

	c.SetPage(99)
	assert.Equal(t, 3, c.PageState().Page)

	c.SetPage(-2)
	assert.Equal(t, 1, c.PageState().Page)

	c.PrevPage()
	assert.Equal(t, 1, c.PageState().Page)

	c.NextPage()
	c.NextPage()
	c.NextPage()
	assert.Equal(t, 3, c.PageState().Page)
	assert.False(t, c.Visible().HasNext)

	c.SetPerPage(0)
	assert.Equal(t, 1, c.PageState().PerPage)
}

func TestController_StatusFilterScenario(t *testing.T) {
	rows := makeRows(200)
	c := newController(rows, dataview.WithPerPage[row](50))
	c.SetSelection("status", "Failed")

	all := c.All()
	require.Len(t, all, 20)
	assert.Equal(t, 20, c.Count())
	for i, r := range all {
		assert.Equal(t, rows[i*10+9].ID, r.ID)
	}
}

func TestController_SingleSelectKeepsLastValue(t *testing.T) {
	c := newController(makeRows(30))

	c.SetSelection("warehouse", "ETL_WH", "BI_WH")
	assert.Equal(t, []string{"BI_WH"}, c.Filters().Selections["warehouse"])

	c.ToggleSelection("warehouse", "COMPUTE_WH")
	assert.Equal(t, []string{"COMPUTE_WH"}, c.Filters().Selections["warehouse"])

	c.ToggleSelection("warehouse", "COMPUTE_WH")
	_, ok := c.Filters().Selections["warehouse"]
	assert.False(t, ok)
}

func TestController_InitialFiltersKeepLastSingleValue(t *testing.T) {
	initial := dataview.FilterState{Selections: map[string][]string{
		"warehouse": {"ETL_WH", "BI_WH"},
		"status":    {"Failed", "Running"},
	}}
	c := newController(makeRows(30), dataview.WithFilters[row](initial))

	assert.Equal(t, []string{"BI_WH"}, c.Filters().Selections["warehouse"])
	assert.Equal(t, []string{"Failed", "Running"}, c.Filters().Selections["status"])
	assert.Equal(t, []string{"ETL_WH", "BI_WH"}, initial.Selections["warehouse"])
	all := c.All()
	require.Len(t, all, 1)
	assert.Equal(t, "BI_WH", all[0].Warehouse)
	assert.Equal(t, "Failed", all[0].Status)
}

func TestController_Memoization(t *testing.T) {
	c := newController(makeRows(200), dataview.WithPerPage[row](10))

	c.Visible()
	f, s := c.Runs()
	assert.Equal(t, 1, f)
	assert.Equal(t, 1, s)

	// page moves reuse the sorted rows
	c.SetPage(2)
	c.Visible()
	c.NextPage()
	c.Visible()
	f, s = c.Runs()
	assert.Equal(t, 1, f)
	assert.Equal(t, 1, s)

	// sort change reuses the filtered rows
	c.SetSort("credits")
	c.Visible()
	f, s = c.Runs()
	assert.Equal(t, 1, f)
	assert.Equal(t, 2, s)

	// idempotent assignments do nothing
	c.SetSearch("")
	c.SortBy("credits", dataview.Ascending)
	c.SetPerPage(10)
	c.Visible()
	f, s = c.Runs()
	assert.Equal(t, 1, f)
	assert.Equal(t, 2, s)

	c.SetSearch("query 1")
	c.Visible()
	f, s = c.Runs()
	assert.Equal(t, 2, f)
	assert.Equal(t, 3, s)
}

func TestController_SetRows(t *testing.T) {
	c := newController(makeRows(40), dataview.WithPerPage[row](10))
	c.SetPage(3)

	c.SetRows([]row{{ID: "x", Credits: decimal.NewFromInt(1)}})
	p := c.Visible()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, []string{"x"}, ids(p.Rows))
}

func TestController_ClearFilters(t *testing.T) {
	c := newController(makeRows(40))
	c.SetSearch("nothing matches this")
	assert.True(t, c.Visible().Empty())

	c.ClearFilters()
	assert.Equal(t, 40, c.Count())
	assert.True(t, c.Filters().Empty())
}

func TestController_Refresh(t *testing.T) {
	now := testNow
	c := dataview.NewController(rowSchema, makeRows(48), dataview.WithClock[row](func() time.Time { return now }))
	c.SetDateRange("started_at", dataview.Window("24h"))
	assert.Equal(t, 25, c.Count())

	now = now.Add(10 * time.Hour)
	assert.Equal(t, 25, c.Count())

	c.Refresh()
	assert.Equal(t, 15, c.Count())
}
