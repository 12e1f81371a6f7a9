package core

import (
	"math"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (Page-1)*PageSize within 32 bits.
	MaxPage = math.MaxInt32 / MaxPageSize
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops the orderings whose field is not in allowed.
// The result falls back to fallback when nothing is left.
func CleanOrderings(orderings []DBOrdering, allowed []string, fallback ...DBOrdering) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		for _, field := range allowed {
			if strings.EqualFold(ord.Field, field) {
				cleaned = append(cleaned, DBOrdering{Field: field, Ascending: ord.Ascending})
				break
			}
		}
	}
	if len(cleaned) == 0 {
		return fallback
	}
	return cleaned
}

// Pagination is a 1-indexed page request.
type Pagination struct {
	Page     int
	PageSize int
}

// Clean applies the default page size and bounds.
func (p Pagination) Clean() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	p = p.Clean()
	return (p.Page - 1) * p.PageSize
}

func (p Pagination) Limit() int {
	return p.Clean().PageSize
}

// Page is one page of a listing.
type Page struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	Total      int         `json:"total"`
	TotalPages int         `json:"total_pages"`
}

func NewPage(items interface{}, p Pagination, total int) Page {
	p = p.Clean()
	return Page{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(p.PageSize))),
	}
}

// Paginate returns the [start, end) bounds of p within a slice of length n.
func Paginate(n int, p Pagination) (start, end int) {
	if n <= 0 {
		return 0, 0
	}
	start = p.Offset()
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end = start + p.Limit()
	if end > n {
		end = n
	}
	return start, end
}
