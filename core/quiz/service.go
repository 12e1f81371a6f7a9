package quiz

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/progress"
	"github.com/manabi/lms/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("quiz not found")

	errNoAttemptsLeft  = "no attempts left"
	errLessonNotInCrse = "lesson does not belong to this course"
	errNoAccess        = "enrollment required"
)

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		QueryQuizzes(ctx context.Context, courseID string, page core.Pagination) ([]Quiz, int, error)
		UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		DeleteQuiz(ctx context.Context, id string) error

		CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
		CountAttempts(ctx context.Context, quizID, userID string) (int, error)
		ListAttempts(ctx context.Context, quizID, userID string) ([]Attempt, error)
	}

	Courses interface {
		Find(ctx context.Context, id string) (course.Course, error)
		Manageable(ctx context.Context, actor user.User, id string) (course.Course, error)
		FindLesson(ctx context.Context, id string) (course.Lesson, error)
	}

	Enrollments interface {
		HasAccess(ctx context.Context, userID, courseID string) (bool, error)
		RequireActive(ctx context.Context, usr user.User, courseID string) (enrollment.Enrollment, error)
	}

	// ProgressRecorder completes the lesson a passed quiz belongs to.
	ProgressRecorder interface {
		Record(ctx context.Context, usr user.User, rp progress.RecordProgress) (progress.RecordResult, error)
	}

	Service struct {
		repo        Repository
		courses     Courses
		enrollments Enrollments
		progress    ProgressRecorder
	}
)

func NewService(repo Repository, courses Courses, enrollments Enrollments, progress ProgressRecorder) *Service {
	return &Service{
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		progress:    progress,
	}
}

func buildQuestions(nqs []NewQuestion) []Question {
	questions := make([]Question, 0, len(nqs))
	for _, nq := range nqs {
		idx := *nq.CorrectIndex
		questions = append(questions, Question{
			ID:           uuid.New().String(),
			Prompt:       nq.Prompt,
			Choices:      nq.Choices,
			CorrectIndex: &idx,
			Points:       nq.Points,
		})
	}
	return questions
}

func (svc *Service) canRead(ctx context.Context, actor user.User, courseID string) (manages bool, err error) {
	c, err := svc.courses.Find(ctx, courseID)
	if err != nil {
		return false, err
	}
	if actor.CanManage(c.InstructorID) {
		return true, nil
	}
	ok, err := svc.enrollments.HasAccess(ctx, actor.ID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	if !ok {
		return false, core.NewPermissionError(errNoAccess)
	}
	return false, nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, nq NewQuiz) (Quiz, error) {
	if err := nq.Validate(); err != nil {
		return Quiz{}, err
	}
	if _, err := svc.courses.Manageable(ctx, actor, nq.CourseID); err != nil {
		return Quiz{}, err
	}
	if nq.LessonID != "" {
		l, err := svc.courses.FindLesson(ctx, nq.LessonID)
		if err != nil && !core.IsNotFound(err) {
			return Quiz{}, errors.Wrap(err, "getting lesson")
		}
		if err != nil || l.CourseID != nq.CourseID {
			return Quiz{}, core.NewFieldError("lesson_id", errLessonNotInCrse)
		}
	}

	now := core.NowFunc()
	return svc.repo.CreateQuiz(ctx, Quiz{
		CourseID:       nq.CourseID,
		LessonID:       nq.LessonID,
		Title:          nq.Title,
		PassingPercent: *nq.PassingPercent,
		MaxAttempts:    nq.MaxAttempts,
		Questions:      buildQuestions(nq.Questions),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// Get returns a quiz. Correct answers are hidden unless actor manages the course.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Quiz, error) {
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	manages, err := svc.canRead(ctx, actor, q.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, err
	}
	if !manages {
		q.HideAnswers()
	}
	return q, nil
}

func (svc *Service) List(ctx context.Context, actor user.User, courseID string, page core.Pagination) ([]Quiz, int, error) {
	if courseID = core.CleanString(courseID); courseID == "" {
		return nil, 0, core.NewFieldError("course_id", "this field is required")
	}
	manages, err := svc.canRead(ctx, actor, courseID)
	if err != nil {
		return nil, 0, err
	}
	quizzes, total, err := svc.repo.QueryQuizzes(ctx, courseID, page.Clean())
	if err != nil {
		return nil, 0, err
	}
	if !manages {
		for i := range quizzes {
			quizzes[i].HideAnswers()
		}
	}
	return quizzes, total, nil
}

func (svc *Service) manageable(ctx context.Context, actor user.User, id string) (Quiz, error) {
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if _, err = svc.courses.Manageable(ctx, actor, q.CourseID); err != nil {
		if core.IsNotFound(err) {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, err
	}
	return q, nil
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, uq UpdateQuiz) (Quiz, error) {
	q, err := svc.manageable(ctx, actor, id)
	if err != nil {
		return Quiz{}, err
	}
	if err = uq.Validate(); err != nil {
		return Quiz{}, err
	}
	if uq.Title != nil {
		q.Title = core.CleanString(*uq.Title)
	}
	if uq.PassingPercent != nil {
		q.PassingPercent = *uq.PassingPercent
	}
	if uq.MaxAttempts != nil {
		q.MaxAttempts = *uq.MaxAttempts
	}
	if uq.Questions != nil {
		q.Questions = buildQuestions(uq.Questions)
	}
	q.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateQuiz(ctx, q)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.manageable(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteQuiz(ctx, id)
}

// Attempt grades and stores an attempt of actor. Passing a lesson quiz completes the lesson.
func (svc *Service) Attempt(ctx context.Context, actor user.User, quizID string, sa SubmitAttempt) (Attempt, error) {
	q, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if _, err = svc.enrollments.RequireActive(ctx, actor, q.CourseID); err != nil {
		return Attempt{}, err
	}
	if err = sa.Validate(q); err != nil {
		return Attempt{}, err
	}
	if q.MaxAttempts > 0 {
		n, err := svc.repo.CountAttempts(ctx, q.ID, actor.ID)
		if err != nil {
			return Attempt{}, errors.Wrap(err, "counting attempts")
		}
		if n >= q.MaxAttempts {
			return Attempt{}, core.NewFieldError("answers", errNoAttemptsLeft)
		}
	}

	score, maxScore, pct, passed := Grade(q, sa.Answers)
	a, err := svc.repo.CreateAttempt(ctx, Attempt{
		QuizID:      q.ID,
		UserID:      actor.ID,
		Answers:     sa.Answers,
		Score:       score,
		MaxScore:    maxScore,
		Percent:     pct,
		Passed:      passed,
		SubmittedAt: core.NowFunc(),
	})
	if err != nil {
		return Attempt{}, errors.Wrap(err, "creating attempt")
	}

	if passed && q.LessonID != "" {
		rp := progress.RecordProgress{LessonID: q.LessonID, Completed: true}
		if _, err = svc.progress.Record(ctx, actor, rp); err != nil && !core.IsNotFound(err) {
			return Attempt{}, errors.Wrap(err, "completing lesson")
		}
	}
	return a, nil
}

// ListAttempts lists the attempts of actor on a quiz.
func (svc *Service) ListAttempts(ctx context.Context, actor user.User, quizID string) ([]Attempt, error) {
	if _, err := svc.Get(ctx, actor, quizID); err != nil {
		return nil, err
	}
	attempts, err := svc.repo.ListAttempts(ctx, quizID, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing attempts")
	}
	if attempts == nil {
		attempts = []Attempt{}
	}
	return attempts, nil
}
