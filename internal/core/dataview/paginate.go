// internal/core/dataview/paginate.go
package dataview

// DefaultPerPage is used when a view does not choose a page size
const DefaultPerPage = 10

// PageState is the requested page of a view
type PageState struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Normalize clamps page and page size to at least 1
func (p PageState) Normalize() PageState {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 1
	}
	return p
}

// ResetPageOnFilterChange returns the state with the page rewound to 1
func ResetPageOnFilterChange(p PageState) PageState {
	p.Page = 1
	return p.Normalize()
}

// Page is one slice of a filtered and sorted sequence
type Page[T any] struct {
	Rows       []T  `json:"rows"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Empty reports whether the page holds no rows
func (p Page[T]) Empty() bool { return len(p.Rows) == 0 }

// TotalPages returns ceil(total/perPage), 0 for an empty sequence
func TotalPages(total, perPage int) int {
	if perPage < 1 {
		perPage = 1
	}
	if total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// ClampPage keeps page inside [1, max(1, totalPages)]
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate slices rows into the requested page. Out of range pages are clamped.
func Paginate[T any](rows []T, page, perPage int) Page[T] {
	ps := PageState{Page: page, PerPage: perPage}.Normalize()
	total := len(rows)
	pages := TotalPages(total, ps.PerPage)
	ps.Page = ClampPage(ps.Page, pages)

	start := (ps.Page - 1) * ps.PerPage
	end := min(start+ps.PerPage, total)
	var slice []T
	if start < end {
		slice = rows[start:end:end]
	} else {
		slice = []T{}
	}

	return Page[T]{
		Rows:       slice,
		Page:       ps.Page,
		PerPage:    ps.PerPage,
		TotalCount: total,
		TotalPages: pages,
		HasNext:    ps.Page < pages,
		HasPrev:    ps.Page > 1,
	}
}
