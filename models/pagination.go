package models

// Pagination is returned alongside paged list data.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// PageRequest carries validated page/limit query parameters.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.Limit }
