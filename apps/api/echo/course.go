package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/enrollment"
)

type courseApi struct {
	svc       *course.Service
	enrollSvc *enrollment.Service
}

func registerCourseAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *course.Service, enrollSvc *enrollment.Service) {
	api := courseApi{svc: svc, enrollSvc: enrollSvc}

	cg := g.Group("/courses", auth)
	cg.GET("", api.query)
	cg.POST("", api.create, staffMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.GET("/:id/outline", api.outline)
	cg.POST("/:id/chapters", api.createChapter)
	cg.GET("/:id/enrollments", api.enrollments)

	chg := g.Group("/chapters", auth)
	chg.PUT("/:id", api.updateChapter)
	chg.DELETE("/:id", api.destroyChapter)
	chg.POST("/:id/lessons", api.createLesson)

	lg := g.Group("/lessons", auth)
	lg.GET("/:id", api.retrieveLesson)
	lg.PUT("/:id", api.updateLesson)
	lg.DELETE("/:id", api.destroyLesson)
}

func (api *courseApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := course.QueryFilter{
		Search:       ctx.QueryParam("search"),
		Category:     ctx.QueryParam("category"),
		Level:        ctx.QueryParam("level"),
		InstructorID: ctx.QueryParam("instructor_id"),
	}
	if filter.IsPublished, err = queryBool(ctx, "is_published"); err != nil {
		return err
	}
	if filter.Free, err = queryBool(ctx, "free"); err != nil {
		return err
	}
	if filter.PriceMin, err = queryInt64(ctx, "price_min"); err != nil {
		return err
	}
	if filter.PriceMax, err = queryInt64(ctx, "price_max"); err != nil {
		return err
	}
	page, err := bindPagination(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, total, err := api.svc.List(ctx.Request().Context(), usr, filter, page, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return respondPage(ctx, courses, page, total)
}

func (api *courseApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	c, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return respond(ctx, http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	c, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return respond(ctx, http.StatusOK, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	c, err := api.svc.Update(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return respond(ctx, http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return respondDeleted(ctx)
}

func (api *courseApi) outline(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	o, err := api.svc.Outline(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course outline")
	}
	return respond(ctx, http.StatusOK, o)
}

func (api *courseApi) enrollments(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	page, err := bindPagination(ctx)
	if err != nil {
		return err
	}

	enrollments, total, err := api.enrollSvc.ListForCourse(
		ctx.Request().Context(), usr, ctx.Param("id"), ctx.QueryParam("status"), page,
	)
	if err != nil {
		return errors.Wrap(err, "listing course enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return respondPage(ctx, enrollments, page, total)
}

// Chapters

func (api *courseApi) createChapter(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.NewChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapter")
	}

	ch, err := api.svc.CreateChapter(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating chapter")
	}
	return respond(ctx, http.StatusCreated, ch)
}

func (api *courseApi) updateChapter(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.UpdateChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChapter")
	}

	ch, err := api.svc.UpdateChapter(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating chapter")
	}
	return respond(ctx, http.StatusOK, ch)
}

func (api *courseApi) destroyChapter(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteChapter(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting chapter")
	}
	return respondDeleted(ctx)
}

// Lessons

func (api *courseApi) createLesson(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}

	l, err := api.svc.CreateLesson(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return respond(ctx, http.StatusCreated, l)
}

func (api *courseApi) retrieveLesson(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	l, c, err := api.svc.GetLesson(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting lesson")
	}
	l, err = api.enrollSvc.LessonFor(ctx.Request().Context(), usr, l, c)
	if err != nil {
		return errors.Wrap(err, "checking lesson access")
	}
	return respond(ctx, http.StatusOK, l)
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}

	l, err := api.svc.UpdateLesson(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return respond(ctx, http.StatusOK, l)
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteLesson(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return respondDeleted(ctx)
}
