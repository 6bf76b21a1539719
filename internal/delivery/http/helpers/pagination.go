package helpers

import (
	"net/http"
	"strconv"

	"eventregistry/internal/domain"
)

// PageBounds is the default and largest page size one list endpoint serves.
type PageBounds struct {
	Default int
	Max     int
}

var (
	EventPages = PageBounds{Default: 20, Max: 100}
	// Managers work through a waiting list in promotion order, so its pages are longer.
	WaitlistPages = PageBounds{Default: 50, Max: 500}
)

// ParsePagination reads page and page_size from the query string. Missing
// values take the defaults and page_size above bounds.Max is clamped; values
// that are not positive integers are answered with 400 and ok=false.
func ParsePagination(w http.ResponseWriter, r *http.Request, bounds PageBounds) (domain.PaginationParams, bool) {
	params := domain.PaginationParams{Page: 1, PageSize: bounds.Default}
	q := r.URL.Query()
	if s := q.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "page must be a positive integer")
			return domain.PaginationParams{}, false
		}
		params.Page = v
	}
	if s := q.Get("page_size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "page_size must be a positive integer")
			return domain.PaginationParams{}, false
		}
		params.PageSize = min(v, bounds.Max)
	}
	return params, true
}

// PaginationMeta is the pagination block of list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPaginationMeta describes the page params selected out of total rows.
func NewPaginationMeta(params domain.PaginationParams, total int) PaginationMeta {
	totalPages := 0
	if params.PageSize > 0 {
		totalPages = (total + params.PageSize - 1) / params.PageSize
	}
	return PaginationMeta{
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
	}
}
