package catalog

const (
	CatalogPerPage = 10
	EntityPerPage  = 15
)

// Pagination describes one page of a result list.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	NextPage   int  `json:"next_page"`
	PrevPage   int  `json:"prev_page"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPagination clamps page and perPage to at least 1 and computes the rest.
func NewPagination(page, perPage, totalCount int) Pagination {
	if perPage < 1 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}
	totalPages := (totalCount + perPage - 1) / perPage
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalCount: totalCount,
		TotalPages: totalPages,
		NextPage:   page + 1,
		PrevPage:   page - 1,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Paginate returns the items of page p. Pages past the end are empty.
func Paginate[T any](items []T, page, perPage int) ([]T, Pagination) {
	p := NewPagination(page, perPage, len(items))
	start := (p.Page - 1) * p.PerPage
	if start >= len(items) {
		return []T{}, p
	}
	end := min(start+p.PerPage, len(items))
	return items[start:end], p
}
