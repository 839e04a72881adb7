package entities

// Pagination is the envelope attached to every list response
type Pagination struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// Page is one slice of a result list
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination computes totalPages = ceil(total/limit) and hasMore = page < totalPages
func NewPagination(total, page, limit int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// Paginate slices items[(page-1)*limit : page*limit] out of a fully filtered list
func Paginate[T any](items []T, page, limit int) Page[T] {
	if limit <= 0 {
		return Page[T]{Items: []T{}, Pagination: NewPagination(len(items), page, limit)}
	}
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	end := start + limit
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	slice := make([]T, end-start)
	copy(slice, items[start:end])

	return Page[T]{
		Items:      slice,
		Pagination: NewPagination(len(items), page, limit),
	}
}
