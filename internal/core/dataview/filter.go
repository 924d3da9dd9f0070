// internal/core/dataview/filter.go
package dataview

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// WindowAll disables a relative date window
const WindowAll = "All"

// Common relative windows offered by the console
var Windows = []string{"24h", "7d", "30d", "90d", WindowAll}

// DateRange is either a relative window tag or an explicit calendar range.
// An explicit End covers the whole calendar day it falls on.
type DateRange struct {
	Window string    `json:"window,omitempty"`
	Start  time.Time `json:"start,omitempty"`
	End    time.Time `json:"end,omitempty"`
}

// Window returns a relative date range such as "7d" or "24h"
func Window(tag string) DateRange {
	return DateRange{Window: tag}
}

// Between returns an explicit date range
func Between(start, end time.Time) DateRange {
	return DateRange{Start: start, End: end}
}

// Explicit reports whether the range uses start/end bounds
func (r DateRange) Explicit() bool {
	return !r.Start.IsZero() || !r.End.IsZero()
}

// Active reports whether the range restricts anything
func (r DateRange) Active() bool {
	if r.Explicit() {
		return true
	}
	_, ok := ParseWindow(r.Window)
	return ok
}

// Contains reports whether ts falls in the range as seen at now.
// Unknown timestamps never match an active range.
func (r DateRange) Contains(ts, now time.Time) bool {
	if !r.Active() {
		return true
	}
	if ts.IsZero() {
		return false
	}
	if r.Explicit() {
		if !r.Start.IsZero() && ts.Before(r.Start) {
			return false
		}
		if !r.End.IsZero() && !ts.Before(r.End.AddDate(0, 0, 1)) {
			return false
		}
		return true
	}
	d, _ := ParseWindow(r.Window)
	return !ts.Before(now.Add(-d))
}

// ParseWindow converts tags like "24h" or "7d" into a duration.
// "All", empty and unrecognised tags report false.
func ParseWindow(tag string) (time.Duration, bool) {
	tag = strings.TrimSpace(tag)
	if len(tag) < 2 || strings.EqualFold(tag, WindowAll) {
		return 0, false
	}
	n, err := strconv.Atoi(tag[:len(tag)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	switch tag[len(tag)-1] {
	case 'd', 'D':
		return time.Duration(n) * 24 * time.Hour, true
	case 'h', 'H':
		return time.Duration(n) * time.Hour, true
	default:
		return 0, false
	}
}

// FilterState holds every filter applied to one view
type FilterState struct {
	Search     string               `json:"search,omitempty"`
	Selections map[string][]string  `json:"selections,omitempty"`
	Dates      map[string]DateRange `json:"dates,omitempty"`
}

// Clone returns a deep copy
func (f FilterState) Clone() FilterState {
	out := FilterState{Search: f.Search}
	if f.Selections != nil {
		out.Selections = make(map[string][]string, len(f.Selections))
		for k, v := range f.Selections {
			out.Selections[k] = slices.Clone(v)
		}
	}
	if f.Dates != nil {
		out.Dates = maps.Clone(f.Dates)
	}
	return out
}

// Empty reports whether no filter restricts rows
func (f FilterState) Empty() bool {
	if strings.TrimSpace(f.Search) != "" {
		return false
	}
	for _, v := range f.Selections {
		if len(v) > 0 {
			return false
		}
	}
	for _, r := range f.Dates {
		if r.Active() {
			return false
		}
	}
	return true
}

// ApplyFilters returns the rows matching every active predicate, in input order.
// Filters on fields the schema does not know are ignored.
func ApplyFilters[T any](rows []T, schema *Schema[T], filters FilterState, now time.Time) []T {
	preds := buildPredicates(schema, filters, now)
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if matchAll(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

type predicate[T any] func(T) bool

func matchAll[T any](row T, preds []predicate[T]) bool {
	for _, p := range preds {
		if !p(row) {
			return false
		}
	}
	return true
}

func buildPredicates[T any](schema *Schema[T], filters FilterState, now time.Time) []predicate[T] {
	var preds []predicate[T]

	if q := strings.ToLower(strings.TrimSpace(filters.Search)); q != "" {
		fields := schema.Searchable()
		preds = append(preds, func(row T) bool {
			for _, f := range fields {
				if strings.Contains(strings.ToLower(f.Get(row).Text()), q) {
					return true
				}
			}
			return false
		})
	}

	// sorted for deterministic predicate order
	for _, name := range slices.Sorted(maps.Keys(filters.Selections)) {
		values := filters.Selections[name]
		f, ok := schema.Field(name)
		if !ok || len(values) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		preds = append(preds, func(row T) bool {
			_, ok := set[f.Get(row).Text()]
			return ok
		})
	}

	for _, name := range slices.Sorted(maps.Keys(filters.Dates)) {
		r := filters.Dates[name]
		f, ok := schema.Field(name)
		if !ok || !r.Active() {
			continue
		}
		preds = append(preds, func(row T) bool {
			v := f.Get(row)
			if v.Kind != KindTime {
				return false
			}
			return r.Contains(v.Time, now)
		})
	}

	return preds
}
