package conversation

import "math"

// PaginatedResult is one page of conversation summaries.
type PaginatedResult struct {
	Data       []*Summary `json:"conversations"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"pages"`
}

func NewPage(data []*Summary, page, limit int, total int64) PaginatedResult {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	if data == nil {
		data = []*Summary{}
	}
	return PaginatedResult{Data: data, Page: page, Limit: limit, Total: total, TotalPages: pages}
}
