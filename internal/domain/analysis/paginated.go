package analysis

import "math"

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Analysis `json:"analyses"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"pages"`
}

// NewPage fills the paging metadata.
func NewPage(data []*Analysis, page, limit int, total int64) PaginatedResult {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	if data == nil {
		data = []*Analysis{}
	}
	return PaginatedResult{Data: data, Page: page, Limit: limit, Total: total, TotalPages: pages}
}
