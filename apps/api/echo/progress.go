package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core/progress"
)

type progressApi struct {
	svc *progress.Service
}

func registerProgressAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *progress.Service) {
	api := progressApi{svc: svc}

	pg := g.Group("/progress", auth)
	pg.POST("", api.record)
	pg.GET("/courses/:id", api.courseProgress)
	pg.GET("/streak", api.streak)
}

func (api *progressApi) record(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data progress.RecordProgress
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordProgress")
	}

	res, err := api.svc.Record(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	return respond(ctx, http.StatusOK, res)
}

func (api *progressApi) courseProgress(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cp, err := api.svc.CourseProgress(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course progress")
	}
	return respond(ctx, http.StatusOK, cp)
}

func (api *progressApi) streak(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	s, err := api.svc.Streak(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "getting streak")
	}
	return respond(ctx, http.StatusOK, s)
}
