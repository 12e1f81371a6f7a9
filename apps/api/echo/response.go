package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/manabi/lms/core"
)

type (
	okResponse struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}

	errResponse struct {
		Success bool        `json:"success"`
		Error   interface{} `json:"error"`
	}
)

func respond(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, okResponse{Success: true, Data: data})
}

func respondDeleted(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, nil)
}

// respondCreated answers 201 when the object was created and 200 when an existing one was returned.
func respondCreated(ctx echo.Context, created bool, data interface{}) error {
	if created {
		return respond(ctx, http.StatusCreated, data)
	}
	return respond(ctx, http.StatusOK, data)
}

func respondPage(ctx echo.Context, items interface{}, page core.Pagination, total int) error {
	return respond(ctx, http.StatusOK, core.NewPage(items, page, total))
}
