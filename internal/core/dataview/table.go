// internal/core/dataview/table.go
package dataview

import "time"

// DisplayTimeFormat is how timestamps are rendered in tables and exports
const DisplayTimeFormat = "2006-01-02 15:04:05"

// Column is a table header
type Column struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	FreeText bool   `json:"free_text,omitempty"`
}

// Table is a schema-ordered, untyped rendition of rows used by exporters
// and the terminal views
type Table struct {
	Columns []Column
	Rows    [][]Value
}

// BuildTable extracts every schema field from rows
func BuildTable[T any](schema *Schema[T], rows []T) *Table {
	fields := schema.Fields()
	t := &Table{
		Columns: make([]Column, len(fields)),
		Rows:    make([][]Value, len(rows)),
	}
	for i, f := range fields {
		t.Columns[i] = Column{Name: f.Name, Kind: f.Kind, FreeText: f.FreeText}
	}
	for i, r := range rows {
		cells := make([]Value, len(fields))
		for j, f := range fields {
			cells[j] = f.Get(r)
		}
		t.Rows[i] = cells
	}
	return t
}

// Without returns a copy of the table minus the columns drop accepts
func (t *Table) Without(drop func(Column) bool) *Table {
	var idx []int
	out := &Table{Rows: make([][]Value, len(t.Rows))}
	for i, c := range t.Columns {
		if !drop(c) {
			idx = append(idx, i)
			out.Columns = append(out.Columns, c)
		}
	}
	for i, r := range t.Rows {
		cells := make([]Value, len(idx))
		for j, k := range idx {
			cells[j] = r[k]
		}
		out.Rows[i] = cells
	}
	return out
}

// Headers returns the column names
func (t *Table) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Strings renders every cell with Format
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		cells := make([]string, len(r))
		for j, v := range r {
			cells[j] = v.Format()
		}
		out[i] = cells
	}
	return out
}

// Format renders a value for display. Unknown timestamps render empty.
func (v Value) Format() string {
	if v.Kind == KindTime {
		if v.Time.IsZero() {
			return ""
		}
		return v.Time.UTC().Format(DisplayTimeFormat)
	}
	return v.Text()
}

// Any returns the value as a JSON friendly Go value
func (v Value) Any() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindTime:
		if v.Time.IsZero() {
			return nil
		}
		return v.Time.UTC().Format(time.RFC3339)
	default:
		return v.Str
	}
}
