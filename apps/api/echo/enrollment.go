package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core/enrollment"
)

type enrollmentApi struct {
	svc *enrollment.Service
}

func registerEnrollmentAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *enrollment.Service) {
	api := enrollmentApi{svc: svc}

	eg := g.Group("/enrollments", auth)
	eg.POST("", api.create)
	eg.GET("", api.queryMine)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id/status", api.changeStatus)
	eg.DELETE("/:id", api.withdraw)
}

func (api *enrollmentApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}

	e, err := api.svc.Enroll(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return respond(ctx, http.StatusCreated, e)
}

func (api *enrollmentApi) queryMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	page, err := bindPagination(ctx)
	if err != nil {
		return err
	}

	enrollments, total, err := api.svc.ListMine(ctx.Request().Context(), usr, ctx.QueryParam("status"), page)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return respondPage(ctx, enrollments, page, total)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	e, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return respond(ctx, http.StatusOK, e)
}

func (api *enrollmentApi) changeStatus(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data enrollment.ChangeStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeStatus")
	}

	e, err := api.svc.Transition(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "changing enrollment status")
	}
	return respond(ctx, http.StatusOK, e)
}

func (api *enrollmentApi) withdraw(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Withdraw(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "withdrawing enrollment")
	}
	return respondDeleted(ctx)
}
