package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination_Clean(t *testing.T) {
	tests := []struct {
		name       string
		p          Pagination
		want       Pagination
		wantOffset int
	}{
		{name: "defaults", p: Pagination{}, want: Pagination{Page: 1, PageSize: DefaultPageSize}, wantOffset: 0},
		{name: "negative", p: Pagination{Page: -3, PageSize: -1}, want: Pagination{Page: 1, PageSize: DefaultPageSize}, wantOffset: 0},
		{name: "third page", p: Pagination{Page: 3, PageSize: 10}, want: Pagination{Page: 3, PageSize: 10}, wantOffset: 20},
		{name: "page size capped", p: Pagination{Page: 2, PageSize: 500}, want: Pagination{Page: 2, PageSize: MaxPageSize}, wantOffset: MaxPageSize},
		{
			name: "huge page is capped", p: Pagination{Page: math.MaxInt64, PageSize: 20},
			want: Pagination{Page: MaxPage, PageSize: 20}, wantOffset: (MaxPage - 1) * 20,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Clean())
			assert.Equal(t, tt.wantOffset, tt.p.Offset())
			assert.GreaterOrEqual(t, tt.p.Offset(), 0)
			assert.Equal(t, tt.want.PageSize, tt.p.Limit())
		})
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		p         Pagination
		wantStart int
		wantEnd   int
	}{
		{name: "empty", n: 0, p: Pagination{}, wantStart: 0, wantEnd: 0},
		{name: "first page", n: 45, p: Pagination{Page: 1, PageSize: 20}, wantStart: 0, wantEnd: 20},
		{name: "last partial page", n: 45, p: Pagination{Page: 3, PageSize: 20}, wantStart: 40, wantEnd: 45},
		{name: "past the end", n: 45, p: Pagination{Page: 9, PageSize: 20}, wantStart: 45, wantEnd: 45},
		{name: "overflowing page", n: 5, p: Pagination{Page: math.MaxInt64, PageSize: 20}, wantStart: 5, wantEnd: 5},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			start, end := Paginate(tt.n, tt.p)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
			assert.True(t, 0 <= start && start <= end && end <= tt.n, "bounds [%d, %d) outside [0, %d]", start, end, tt.n)
		})
	}
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name  string
		p     Pagination
		total int
		want  Page
	}{
		{name: "no rows", p: Pagination{}, total: 0, want: Page{Page: 1, PageSize: 20, Total: 0, TotalPages: 0}},
		{name: "exact pages", p: Pagination{Page: 2, PageSize: 10}, total: 30, want: Page{Page: 2, PageSize: 10, Total: 30, TotalPages: 3}},
		{name: "partial last page", p: Pagination{Page: 1, PageSize: 20}, total: 41, want: Page{Page: 1, PageSize: 20, Total: 41, TotalPages: 3}},
		{name: "size capped", p: Pagination{PageSize: 1000}, total: 250, want: Page{Page: 1, PageSize: 100, Total: 250, TotalPages: 3}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := NewPage(nil, tt.p, tt.total)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanOrderings(t *testing.T) {
	allowed := []string{"title", "price", "created_at"}
	fallback := DBOrdering{Field: "created_at"}

	tests := []struct {
		name      string
		orderings []DBOrdering
		want      []DBOrdering
	}{
		{name: "nothing falls back", orderings: nil, want: []DBOrdering{fallback}},
		{name: "unknown fields fall back", orderings: []DBOrdering{{Field: "password"}}, want: []DBOrdering{fallback}},
		{
			name:      "unknown fields dropped",
			orderings: []DBOrdering{{Field: "password", Ascending: true}, {Field: "Price", Ascending: true}, {Field: "title"}},
			want:      []DBOrdering{{Field: "price", Ascending: true}, {Field: "title"}},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanOrderings(tt.orderings, allowed, fallback))
		})
	}

	assert.Equal(t, "price ASC", DBOrdering{Field: "price", Ascending: true}.String())
	assert.Equal(t, "created_at DESC", fallback.String())
}
