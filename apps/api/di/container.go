// Package di wires the application with a go.uber.org/dig container.
package di

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/dig"

	echoapi "github.com/manabi/lms/apps/api/echo"
	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/assignment"
	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/payment"
	"github.com/manabi/lms/core/progress"
	"github.com/manabi/lms/core/quiz"
	"github.com/manabi/lms/core/user"
	emailsvc "github.com/manabi/lms/services/email"
	identitysvc "github.com/manabi/lms/services/identity"
	logsvc "github.com/manabi/lms/services/logger"
	messagingsvc "github.com/manabi/lms/services/messaging"
	"github.com/manabi/lms/storage/cache"
	"github.com/manabi/lms/storage/database"
	inmemdb "github.com/manabi/lms/storage/database/inmem"
	sqlxrepos "github.com/manabi/lms/storage/database/sqlx"
)

type (
	// Repositories are backed by PostgreSQL, or by memory when Database.InMemory is set.
	Repositories struct {
		dig.Out
		Users       user.Repository
		Courses     course.Repository
		Enrollments enrollment.Repository
		Progress    progress.Repository
		Assignments assignment.Repository
		Quizzes     quiz.Repository
		Payments    payment.Repository
	}

	// DB is nil when running on the in-memory repositories.
	DB struct {
		*sqlx.DB
	}

	// Services is everything a process entry point may need.
	Services struct {
		dig.In
		Conf          *core.Config
		Logger        *logsvc.RollbarLogger
		DB            DB
		Notifier      core.Notifier
		UserSvc       *user.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		ProgressSvc   *progress.Service
		AssignmentSvc *assignment.Service
		QuizSvc       *quiz.Service
		PaymentSvc    *payment.Service
	}

	depsParams struct {
		dig.In
		Services
		Identity core.IdentityVerifier
		Line     messagingsvc.Gateway
	}
)

// Close releases the database connections, if any.
func (db DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Check pings the database. Always succeeds on the in-memory repositories.
func (db DB) Check(ctx context.Context) error {
	if db.DB == nil {
		return nil
	}
	return database.StatusCheck(ctx, db.DB)
}

func newZerolog(conf *core.Config) zerolog.Logger {
	return logsvc.NewZerolog(conf)
}

func newLogger(zl zerolog.Logger, conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newCoreLogger(logger *logsvc.RollbarLogger) core.Logger {
	return logger
}

func newDB(conf *core.Config) (DB, error) {
	if conf.Database.InMemory {
		return DB{}, nil
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		return DB{}, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return DB{}, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return DB{}, errors.Wrap(err, "migrating database")
	}
	return DB{db}, nil
}

func newRepositories(db DB) Repositories {
	if db.DB == nil {
		mem := inmemdb.Open()
		return Repositories{
			Users:       inmemdb.NewUserRepository(mem),
			Courses:     inmemdb.NewCourseRepository(mem),
			Enrollments: inmemdb.NewEnrollmentRepository(mem),
			Progress:    inmemdb.NewProgressRepository(mem),
			Assignments: inmemdb.NewAssignmentRepository(mem),
			Quizzes:     inmemdb.NewQuizRepository(mem),
			Payments:    inmemdb.NewPaymentRepository(mem),
		}
	}
	return Repositories{
		Users:       sqlxrepos.NewUserRepository(db.DB),
		Courses:     sqlxrepos.NewCourseRepository(db.DB),
		Enrollments: sqlxrepos.NewEnrollmentRepository(db.DB),
		Progress:    sqlxrepos.NewProgressRepository(db.DB),
		Assignments: sqlxrepos.NewAssignmentRepository(db.DB),
		Quizzes:     sqlxrepos.NewQuizRepository(db.DB),
		Payments:    sqlxrepos.NewPaymentRepository(db.DB),
	}
}

// newCache uses Redis when an address is configured.
func newCache(conf *core.Config) (core.Cache, error) {
	if conf.Redis.Addr == "" {
		return cache.NewMemoryCache(), nil
	}
	client, err := cache.OpenRedis(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return cache.NewRedisCache(client), nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newLineGateway talks to LINE when a channel token is configured.
func newLineGateway(conf *core.Config, logger core.Logger) (messagingsvc.Gateway, error) {
	if conf.Line.ChannelToken == "" {
		return messagingsvc.NewConsoleService(conf, logger)
	}
	return messagingsvc.NewLineService(conf)
}

func newNotifier(gw messagingsvc.Gateway) core.Notifier {
	return gw
}

func newIdentityVerifier(conf *core.Config) (core.IdentityVerifier, error) {
	if conf.UsesLocalIdentity() {
		return identitysvc.NewLocalVerifier(conf), nil
	}
	return identitysvc.NewFirebaseVerifier(context.Background(), conf)
}

func newCourseService(repo course.Repository, users *user.Service, c core.Cache, logger core.Logger, conf *core.Config) *course.Service {
	return course.NewService(repo, users, c, logger, conf)
}

func newEnrollmentService(
	repo enrollment.Repository,
	courses *course.Service,
	users *user.Service,
	progressRepo progress.Repository,
	paymentRepo payment.Repository,
	notifier core.Notifier,
	mailSvc core.EmailService,
	logger core.Logger,
) *enrollment.Service {
	return enrollment.NewService(repo, courses, users, progressRepo, paymentRepo, notifier, mailSvc, logger)
}

func newProgressService(repo progress.Repository, courses *course.Service, enrollments *enrollment.Service, conf *core.Config) *progress.Service {
	return progress.NewService(repo, courses, enrollments, conf)
}

func newQuizService(repo quiz.Repository, courses *course.Service, enrollments *enrollment.Service, prog *progress.Service) *quiz.Service {
	return quiz.NewService(repo, courses, enrollments, prog)
}

func newAssignmentService(
	repo assignment.Repository,
	courses *course.Service,
	enrollments *enrollment.Service,
	users *user.Service,
	notifier core.Notifier,
	mailSvc core.EmailService,
	logger core.Logger,
) *assignment.Service {
	return assignment.NewService(repo, courses, enrollments, users, notifier, mailSvc, logger)
}

func newPaymentService(repo payment.Repository, courses *course.Service, enrollments *enrollment.Service, logger core.Logger, conf *core.Config) *payment.Service {
	return payment.NewService(repo, courses, enrollments, logger, conf)
}

// newShutdownChannel is notified on SIGINT and SIGTERM.
func newShutdownChannel() chan os.Signal {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newServer(p depsParams, shutdown chan os.Signal) echoapi.Server {
	deps := &echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		DBCheck:       p.DB.Check,
		Identity:      p.Identity,
		Line:          p.Line,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		EnrollmentSvc: p.EnrollmentSvc,
		ProgressSvc:   p.ProgressSvc,
		AssignmentSvc: p.AssignmentSvc,
		QuizSvc:       p.QuizSvc,
		PaymentSvc:    p.PaymentSvc,
	}
	return echoapi.NewServer(p.Conf.Server.Host, shutdown, deps)
}

// New returns a new dependency injection dig.Container.
// newConfig defaults to core.NewConfig.
func New(newConfig ...func() *core.Config) *dig.Container {
	c := dig.New()

	confFunc := core.NewConfig
	if len(newConfig) > 0 {
		confFunc = newConfig[0]
	}

	must(c.Provide(confFunc))
	must(c.Provide(newZerolog))
	must(c.Provide(newLogger))
	must(c.Provide(newCoreLogger))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newCache))
	must(c.Provide(newEmailService))
	must(c.Provide(newLineGateway))
	must(c.Provide(newNotifier))
	must(c.Provide(newIdentityVerifier))
	must(c.Provide(user.NewService))
	must(c.Provide(newCourseService))
	must(c.Provide(newEnrollmentService))
	must(c.Provide(newProgressService))
	must(c.Provide(newQuizService))
	must(c.Provide(newAssignmentService))
	must(c.Provide(newPaymentService))
	must(c.Provide(newShutdownChannel))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
