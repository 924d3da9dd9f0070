// internal/core/dataview/sort.go
package dataview

import (
	"slices"
	"strings"
)

// Direction is the sort direction of a column
type Direction string

// Sort directions
const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// ParseDirection accepts "asc"/"desc" shorthands as well as the full names
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return Descending
	default:
		return Ascending
	}
}

// Flip returns the opposite direction
func (d Direction) Flip() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// SortState is the active sort key. A nil *SortState keeps input order.
type SortState struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Toggle applies a header click on field: the same field flips direction,
// any other field starts ascending.
func (s *SortState) Toggle(field string) *SortState {
	if s != nil && s.Field == field {
		return &SortState{Field: field, Direction: s.Direction.Flip()}
	}
	return &SortState{Field: field, Direction: Ascending}
}

// Equal compares two possibly nil sort states
func (s *SortState) Equal(o *SortState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return *s == *o
}

// ApplySort returns a stably sorted copy of rows. Rows with equal keys keep
// their relative input order in both directions. A nil state or a field the
// schema does not know returns an unsorted copy.
func ApplySort[T any](rows []T, schema *Schema[T], state *SortState) []T {
	out := slices.Clone(rows)
	if state == nil {
		return out
	}
	f, ok := schema.Field(state.Field)
	if !ok {
		return out
	}
	desc := state.Direction == Descending
	slices.SortStableFunc(out, func(a, b T) int {
		c := Compare(f.Get(a), f.Get(b))
		if desc {
			return -c
		}
		return c
	})
	return out
}
