package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset)
}

func TestNewParams(t *testing.T) {
	p := NewParams(3, 5)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 5, p.PageSize)
	assert.Equal(t, 10, p.Offset)

	p = NewParams(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
}

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items?page=3&pageSize=50", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, 100, p.Offset)
}

func TestFromRequest_InvalidValues(t *testing.T) {
	for _, q := range []string{"page=-1", "page=0", "page=abc", "pageSize=0", "pageSize=101", "pageSize=x"} {
		req := httptest.NewRequest(http.MethodGet, "/items?"+q, nil)
		p := FromRequest(req)
		assert.Equal(t, 1, p.Page, q)
		assert.Equal(t, 20, p.PageSize, q)
	}
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "page=2&pageSize=5", NewParams(2, 5).Query())
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{12, 5, 3},
		{10, 0, 0},
		{-3, 5, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestNewResult(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 12, NewParams(2, 5))
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)

	r = NewResult([]string{"a", "b"}, 12, NewParams(3, 5))
	assert.False(t, r.HasNext)
}

func TestSlice(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, Slice(all, NewParams(1, 5)).Data)
	assert.Equal(t, []int{6, 7, 8, 9, 10}, Slice(all, NewParams(2, 5)).Data)
	assert.Equal(t, []int{11, 12}, Slice(all, NewParams(3, 5)).Data)
	assert.Empty(t, Slice(all, NewParams(4, 5)).Data)
	assert.Equal(t, 12, Slice(all, NewParams(4, 5)).TotalCount)
}
