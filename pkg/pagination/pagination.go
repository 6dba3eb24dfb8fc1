package pagination

import (
	"net/http"
	"strconv"
)

// MaxPageSize bounds the page size accepted from a query string.
const MaxPageSize = 100

// Params holds pagination parameters for one page request.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Offset   int `json:"-"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:     1,
		PageSize: 20,
		Offset:   0,
	}
}

// NewParams builds params for a 1-based page number.
func NewParams(page, pageSize int) Params {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultParams().PageSize
	}
	return Params{Page: page, PageSize: pageSize, Offset: (page - 1) * pageSize}
}

// FromRequest extracts page and pageSize query parameters from an HTTP request.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if size := r.URL.Query().Get("pageSize"); size != "" {
		if v, err := strconv.Atoi(size); err == nil && v > 0 && v <= MaxPageSize {
			p.PageSize = v
		}
	}

	p.Offset = (p.Page - 1) * p.PageSize
	return p
}

// Query renders the params as a query string (without the leading '?').
func (p Params) Query() string {
	return "page=" + strconv.Itoa(p.Page) + "&pageSize=" + strconv.Itoa(p.PageSize)
}

// TotalPages returns ceil(totalCount / pageSize). A non-positive page size
// yields zero pages.
func TotalPages(totalCount, pageSize int) int {
	if pageSize <= 0 || totalCount <= 0 {
		return 0
	}
	totalPages := totalCount / pageSize
	if totalCount%pageSize > 0 {
		totalPages++
	}
	return totalPages
}

// Window returns the [start, end) slice bounds of the page within a
// collection of length n.
func (p Params) Window(n int) (start, end int) {
	start = p.Offset
	if start > n {
		start = n
	}
	end = start + p.PageSize
	if end > n {
		end = n
	}
	return start, end
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"totalCount"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewResult creates a paginated result.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	totalPages := TotalPages(totalCount, params.PageSize)

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Slice returns the page of items described by params plus the result
// metadata for the full collection.
func Slice[T any](all []T, params Params) Result[T] {
	start, end := params.Window(len(all))
	page := make([]T, end-start)
	copy(page, all[start:end])
	return NewResult(page, len(all), params)
}
