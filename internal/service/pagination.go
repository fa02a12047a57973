package service

import "github.com/mkale/payfeed/internal/domain"

// Paging defaults applied by NormalizePaging when the caller supplies nothing
// usable.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// NormalizePaging replaces out-of-range page/limit values with the defaults.
// Paginate itself assumes validated positive integers.
func NormalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return page, limit
}

// Paginate slices an ordered sequence deterministically.
//
// totalPages is ceil(len/limit) clamped to at least 1, so an empty input
// still reports one (empty) page. A page past the end yields an empty data
// slice. Concatenating the data of pages 1..totalPages reproduces the input.
func Paginate[T any](items []T, page, limit int) domain.Page[T] {
	totalPages := (len(items) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	start := (page - 1) * limit
	end := start + limit
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	// Copy so callers cannot alias the composer's backing array.
	data := make([]T, end-start)
	copy(data, items[start:end])

	return domain.Page[T]{
		Data:         data,
		Page:         page,
		Limit:        limit,
		TotalPages:   totalPages,
		HasNextPages: page < totalPages,
	}
}
