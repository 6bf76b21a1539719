package domain

// PaginationParams holds offset-based pagination parameters for list queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// DefaultPagination is used when a caller does not page explicitly.
var DefaultPagination = PaginationParams{Page: 1, PageSize: 50}

// Offset returns the row offset for the current page (0-based).
// Formula: (Page - 1) * PageSize.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Limit returns the page size, falling back to DefaultPagination.PageSize.
func (p PaginationParams) Limit() int {
	if p.PageSize < 1 {
		return DefaultPagination.PageSize
	}
	return p.PageSize
}
