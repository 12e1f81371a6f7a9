package echoapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/manabi/lms/core"
)

var (
	orderingParam = "ordering"
	pageParam     = "page"
	pageSizeParam = "page_size"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindPagination reads `page` and `page_size`; missing values fall back to the defaults.
func bindPagination(ctx echo.Context) (core.Pagination, error) {
	var p core.Pagination
	var err error
	if p.Page, err = queryInt(ctx, pageParam); err != nil {
		return p, err
	}
	if p.Page > core.MaxPage {
		return p, core.NewFieldError(pageParam, fmt.Sprintf("must be at most %d", core.MaxPage))
	}
	if p.PageSize, err = queryInt(ctx, pageSizeParam); err != nil {
		return p, err
	}
	return p.Clean(), nil
}

func queryInt(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, core.NewFieldError(name, "must be a positive integer")
	}
	return n, nil
}

func queryInt64(ctx echo.Context, name string) (*int64, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, core.NewFieldError(name, "must be an integer")
	}
	return &n, nil
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewFieldError(name, "must be a boolean")
	}
	return &b, nil
}

// queryTime parses an RFC 3339 timestamp.
func queryTime(ctx echo.Context, name string) (time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, core.NewFieldError(name, "must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}
