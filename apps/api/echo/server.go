package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/assignment"
	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/payment"
	"github.com/manabi/lms/core/progress"
	"github.com/manabi/lms/core/quiz"
	"github.com/manabi/lms/core/user"
	"github.com/manabi/lms/services/messaging"
)

type (
	// Deps holds everything the API handlers need.
	Deps struct {
		Conf     *core.Config
		Logger   core.Logger
		DBCheck  func(ctx context.Context) error
		Identity core.IdentityVerifier
		Line     messagingsvc.Gateway

		UserSvc       *user.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		ProgressSvc   *progress.Service
		AssignmentSvc *assignment.Service
		QuizSvc       *quiz.Service
		PaymentSvc    *payment.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		address  string
		shutdown chan os.Signal
		deps     *Deps
		app      *echo.Echo
		metrics  *metrics
	}
)

var _ Server = (*server)(nil)

// NewServer builds the API server. shutdown may be nil; when set, fatal errors caught by the
// error handler signal it.
func NewServer(address string, shutdown chan os.Signal, deps *Deps) Server {
	s := &server{
		address:  address,
		shutdown: shutdown,
		deps:     deps,
		app:      echo.New(),
		metrics:  newMetrics(deps.Conf.AppName),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: conf.Server.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.Use(s.metrics.middleware())
	s.app.Use(rateLimitMiddleware(conf.Server.RateLimit, conf.Server.RateBurst))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))

	api := s.app.Group("/api")
	api.GET("/health", s.health)

	auth := authMiddleware(s.deps.Identity, s.deps.UserSvc)

	registerUserAPI(api, auth, s.deps.UserSvc)
	registerCourseAPI(api, auth, s.deps.CourseSvc, s.deps.EnrollmentSvc)
	registerEnrollmentAPI(api, auth, s.deps.EnrollmentSvc)
	registerProgressAPI(api, auth, s.deps.ProgressSvc)
	registerAssignmentAPI(api, auth, s.deps.AssignmentSvc)
	registerQuizAPI(api, auth, s.deps.QuizSvc)
	registerPaymentAPI(api, auth, s.deps.PaymentSvc)
	registerLineAPI(api, s.deps.Line, s.deps.UserSvc, s.deps.Logger, conf.AppName)
}

func (s *server) Start() error {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "starting server")
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- syscall.SIGTERM
	}
}

func (s *server) health(ctx echo.Context) error {
	status := "ok"
	if s.deps.DBCheck != nil {
		if err := s.deps.DBCheck(ctx.Request().Context()); err != nil {
			s.deps.Logger.Warn("health check failed", err)
			status = "db not ready"
			return ctx.JSON(http.StatusInternalServerError, errResponse{Error: status})
		}
	}
	return respond(ctx, http.StatusOK, echo.Map{"status": status, "build": s.deps.Conf.Build})
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Manabi API!")
}
