package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/user"
)

// ErrNotFound is returned when no progress was recorded for a lesson.
var ErrNotFound = core.NewNotFoundError("progress not found")

type (
	Repository interface {
		GetLessonProgress(ctx context.Context, userID, lessonID string) (LessonProgress, error)
		// SaveLessonProgress inserts or updates the (user, lesson) record.
		SaveLessonProgress(ctx context.Context, lp LessonProgress) (LessonProgress, error)
		ListLessonProgress(ctx context.Context, userID, courseID string) ([]LessonProgress, error)
		CountCompletedLessons(ctx context.Context, userID, courseID string) (int, error)

		// RecordActivity marks day as a learning day of userID. Idempotent.
		RecordActivity(ctx context.Context, userID string, day time.Time) error
		ActivityDays(ctx context.Context, userID string) ([]time.Time, error)
		UsersActiveOn(ctx context.Context, day time.Time) ([]string, error)
	}

	LessonFinder interface {
		FindLesson(ctx context.Context, id string) (course.Lesson, error)
		CountLessons(ctx context.Context, courseID string) (int, error)
	}

	Enrollments interface {
		Find(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error)
		RequireActive(ctx context.Context, usr user.User, courseID string) (enrollment.Enrollment, error)
		Recalculate(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error)
	}

	Service struct {
		repo        Repository
		lessons     LessonFinder
		enrollments Enrollments
		loc         *time.Location
	}
)

func NewService(repo Repository, lessons LessonFinder, enrollments Enrollments, conf *core.Config) *Service {
	return &Service{
		repo:        repo,
		lessons:     lessons,
		enrollments: enrollments,
		loc:         conf.Location(),
	}
}

func (svc *Service) today() time.Time {
	return core.Day(core.NowFunc(), svc.loc)
}

// Record saves the progress of usr on a lesson of a course they are actively enrolled in.
func (svc *Service) Record(ctx context.Context, usr user.User, rp RecordProgress) (RecordResult, error) {
	if err := rp.Validate(); err != nil {
		return RecordResult{}, err
	}
	l, err := svc.lessons.FindLesson(ctx, rp.LessonID)
	if err != nil {
		return RecordResult{}, err
	}
	if _, err = svc.enrollments.RequireActive(ctx, usr, l.CourseID); err != nil {
		return RecordResult{}, err
	}

	lp, err := svc.repo.GetLessonProgress(ctx, usr.ID, l.ID)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return RecordResult{}, errors.Wrap(err, "getting lesson progress")
		}
		lp = LessonProgress{UserID: usr.ID, CourseID: l.CourseID, LessonID: l.ID}
	}

	now := core.NowFunc()
	if rp.WatchPosition != nil {
		pos := *rp.WatchPosition
		if l.DurationSeconds > 0 && pos > l.DurationSeconds {
			pos = l.DurationSeconds
		}
		lp.WatchPositionSeconds = pos
	}
	if rp.Completed && !lp.Completed {
		lp.Completed = true
		lp.CompletedAt = &now
	}
	lp.UpdatedAt = now
	if lp, err = svc.repo.SaveLessonProgress(ctx, lp); err != nil {
		return RecordResult{}, errors.Wrap(err, "saving lesson progress")
	}

	if err = svc.repo.RecordActivity(ctx, usr.ID, svc.today()); err != nil {
		return RecordResult{}, errors.Wrap(err, "recording activity")
	}

	e, err := svc.enrollments.Recalculate(ctx, usr.ID, l.CourseID)
	if err != nil {
		return RecordResult{}, errors.Wrap(err, "recalculating enrollment")
	}
	return RecordResult{Progress: lp, Enrollment: e}, nil
}

func (svc *Service) CourseProgress(ctx context.Context, usr user.User, courseID string) (CourseProgress, error) {
	e, err := svc.enrollments.Find(ctx, usr.ID, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	lessons, err := svc.repo.ListLessonProgress(ctx, usr.ID, courseID)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "listing lesson progress")
	}
	total, err := svc.lessons.CountLessons(ctx, courseID)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "counting lessons")
	}

	done := 0
	for _, lp := range lessons {
		if lp.Completed {
			done++
		}
	}
	if lessons == nil {
		lessons = []LessonProgress{}
	}
	return CourseProgress{
		CourseID:         courseID,
		Enrollment:       e,
		CompletedLessons: done,
		TotalLessons:     total,
		Lessons:          lessons,
	}, nil
}

func (svc *Service) Streak(ctx context.Context, usr user.User) (Streak, error) {
	days, err := svc.repo.ActivityDays(ctx, usr.ID)
	if err != nil {
		return Streak{}, errors.Wrap(err, "listing activity days")
	}
	return ComputeStreak(days, svc.today()), nil
}

// StreakAtRisk returns the users who learned yesterday but not yet today.
func (svc *Service) StreakAtRisk(ctx context.Context) ([]string, error) {
	today := svc.today()
	yesterdayIDs, err := svc.repo.UsersActiveOn(ctx, today.AddDate(0, 0, -1))
	if err != nil {
		return nil, errors.Wrap(err, "listing yesterday's learners")
	}
	todayIDs, err := svc.repo.UsersActiveOn(ctx, today)
	if err != nil {
		return nil, errors.Wrap(err, "listing today's learners")
	}

	active := make(map[string]bool, len(todayIDs))
	for _, id := range todayIDs {
		active[id] = true
	}
	ids := make([]string, 0, len(yesterdayIDs))
	for _, id := range yesterdayIDs {
		if !active[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
