// Package testutil builds fixtures and a fully wired in-memory application for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

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
	inmemdb "github.com/manabi/lms/storage/database/inmem"
)

// App is the whole application running on the in-memory repositories.
type App struct {
	Conf     *core.Config
	Logger   *logsvc.RollbarLogger
	Identity *identitysvc.LocalVerifier
	Line     *messagingsvc.ConsoleService
	Mail     core.EmailService

	UserRepo       user.Repository
	CourseRepo     course.Repository
	EnrollmentRepo enrollment.Repository
	ProgressRepo   progress.Repository
	AssignmentRepo assignment.Repository
	QuizRepo       quiz.Repository
	PaymentRepo    payment.Repository

	UserSvc       *user.Service
	CourseSvc     *course.Service
	EnrollmentSvc *enrollment.Service
	ProgressSvc   *progress.Service
	AssignmentSvc *assignment.Service
	QuizSvc       *quiz.Service
	PaymentSvc    *payment.Service
}

func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(zerolog.Nop(), conf)
}

// NewApp wires every service on a fresh in-memory database.
func NewApp(t *testing.T) *App {
	conf := core.NewTestConfig()
	logger := NewLogger(conf)
	line, err := messagingsvc.NewConsoleService(conf, logger)
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}

	db := inmemdb.Open()
	a := &App{
		Conf:     conf,
		Logger:   logger,
		Identity: identitysvc.NewLocalVerifier(conf),
		Line:     line,
		Mail:     emailsvc.NewConsoleServiceMock(conf, logger),

		UserRepo:       inmemdb.NewUserRepository(db),
		CourseRepo:     inmemdb.NewCourseRepository(db),
		EnrollmentRepo: inmemdb.NewEnrollmentRepository(db),
		ProgressRepo:   inmemdb.NewProgressRepository(db),
		AssignmentRepo: inmemdb.NewAssignmentRepository(db),
		QuizRepo:       inmemdb.NewQuizRepository(db),
		PaymentRepo:    inmemdb.NewPaymentRepository(db),
	}
	a.UserSvc = user.NewService(a.UserRepo, cache.NewMemoryCache())
	a.CourseSvc = course.NewService(a.CourseRepo, a.UserSvc, cache.NewMemoryCache(), logger, conf)
	a.EnrollmentSvc = enrollment.NewService(a.EnrollmentRepo, a.CourseSvc, a.UserSvc, a.ProgressRepo, a.PaymentRepo, line, a.Mail, logger)
	a.ProgressSvc = progress.NewService(a.ProgressRepo, a.CourseSvc, a.EnrollmentSvc, conf)
	a.QuizSvc = quiz.NewService(a.QuizRepo, a.CourseSvc, a.EnrollmentSvc, a.ProgressSvc)
	a.AssignmentSvc = assignment.NewService(a.AssignmentRepo, a.CourseSvc, a.EnrollmentSvc, a.UserSvc, line, a.Mail, logger)
	a.PaymentSvc = payment.NewService(a.PaymentRepo, a.CourseSvc, a.EnrollmentSvc, logger, conf)

	line.Reset()
	emailsvc.ResetSentMessages()
	return a
}

// Token issues a bearer token for usr.
func (a *App) Token(t *testing.T, usr user.User) string {
	token, err := a.Identity.Issue(core.Identity{UID: usr.FirebaseUID, Email: usr.Email, EmailVerified: true, Name: usr.Name})
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	return token
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if role == "" {
		role = user.RoleStudent
	}
	usr, err := repo.CreateUser(context.Background(), user.User{
		FirebaseUID: "uid-" + email,
		Name:        name,
		Email:       email,
		Role:        role,
		IsActive:    isActive,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, instructorID, title string, price int64, published bool) course.Course {
	now := time.Now().UTC()
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Title:        title,
		Description:  title + " description",
		Category:     "programming",
		Level:        course.LevelBeginner,
		Price:        price,
		Currency:     "JPY",
		IsPublished:  published,
		InstructorID: instructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreateChapter(t *testing.T, repo course.Repository, courseID, title string, position int) course.Chapter {
	now := time.Now().UTC()
	ch, err := repo.CreateChapter(context.Background(), course.Chapter{
		CourseID:  courseID,
		Title:     title,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateChapter() failed: %v", err)
	}
	return ch
}

func CreateLesson(t *testing.T, repo course.Repository, ch course.Chapter, title string, position int, preview bool) course.Lesson {
	now := time.Now().UTC()
	l, err := repo.CreateLesson(context.Background(), course.Lesson{
		CourseID:        ch.CourseID,
		ChapterID:       ch.ID,
		Title:           title,
		Content:         title + " content",
		VideoURL:        "https://videos.test/" + title,
		DurationSeconds: 300,
		Position:        position,
		IsPreview:       preview,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return l
}

func CreateEnrollment(t *testing.T, repo enrollment.Repository, userID, courseID, status string) enrollment.Enrollment {
	now := time.Now().UTC()
	if status == "" {
		status = enrollment.StatusActive
	}
	e, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     status,
		EnrolledAt: now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return e
}
