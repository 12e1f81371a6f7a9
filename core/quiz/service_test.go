package quiz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/progress"
	"github.com/manabi/lms/core/quiz"
	"github.com/manabi/lms/core/user"
	"github.com/manabi/lms/tests"
)

func intPtr(i int) *int { return &i }

func newQuestions() []quiz.NewQuestion {
	return []quiz.NewQuestion{
		{Prompt: "2 + 2?", Choices: []string{"3", "4"}, CorrectIndex: intPtr(1), Points: 2},
		{Prompt: "Go keyword for goroutines?", Choices: []string{"go", "async", "spawn"}, CorrectIndex: intPtr(0)},
		{Prompt: "Zero value of *int?", Choices: []string{"0", "nil"}, CorrectIndex: intPtr(1)},
	}
}

func TestGrade(t *testing.T) {
	q := quiz.Quiz{
		PassingPercent: 60,
		Questions: []quiz.Question{
			{CorrectIndex: intPtr(1), Points: 2},
			{CorrectIndex: intPtr(0), Points: 1},
			{CorrectIndex: intPtr(1), Points: 1},
		},
	}
	tests := []struct {
		name                 string
		answers              []int
		score, maxScore, pct int
		passed               bool
	}{
		{name: "all correct", answers: []int{1, 0, 1}, score: 4, maxScore: 4, pct: 100, passed: true},
		{name: "all skipped", answers: []int{-1, -1, -1}, score: 0, maxScore: 4, pct: 0},
		{name: "heavy question only", answers: []int{1, 1, 0}, score: 2, maxScore: 4, pct: 50},
		{name: "just passing", answers: []int{1, 0, 0}, score: 3, maxScore: 4, pct: 75, passed: true},
		{name: "short answers", answers: []int{1}, score: 2, maxScore: 4, pct: 50},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			score, maxScore, pct, passed := quiz.Grade(q, tt.answers)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.maxScore, maxScore)
			assert.Equal(t, tt.pct, pct)
			assert.Equal(t, tt.passed, passed)
		})
	}

	_, maxScore, pct, passed := quiz.Grade(quiz.Quiz{PassingPercent: 0}, nil)
	assert.Equal(t, 0, maxScore)
	assert.Equal(t, 0, pct)
	assert.True(t, passed)
}

func TestService(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	instr := testutil.CreateUser(t, app.UserRepo, "Instr", "instr@test.jp", user.RoleInstructor, true)
	rival := testutil.CreateUser(t, app.UserRepo, "Rival", "rival@test.jp", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.UserRepo, "Nao", "nao@test.jp", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, app.UserRepo, "Out", "out@test.jp", user.RoleStudent, true)
	c := testutil.CreateCourse(t, app.CourseRepo, instr.ID, "Go", 0, true)
	other := testutil.CreateCourse(t, app.CourseRepo, rival.ID, "Rust", 0, true)
	ch := testutil.CreateChapter(t, app.CourseRepo, c.ID, "Intro", 1)
	l := testutil.CreateLesson(t, app.CourseRepo, ch, "basics", 1, false)
	otherCh := testutil.CreateChapter(t, app.CourseRepo, other.ID, "Intro", 1)
	otherL := testutil.CreateLesson(t, app.CourseRepo, otherCh, "borrowing", 1, false)
	testutil.CreateEnrollment(t, app.EnrollmentRepo, student.ID, c.ID, "")

	t.Run("create: not owner", func(t *testing.T) {
		_, err := app.QuizSvc.Create(ctx, rival, quiz.NewQuiz{CourseID: c.ID, Title: "Q", Questions: newQuestions()})
		assert.True(t, core.IsPermissionError(err))
	})

	t.Run("create: correct index out of range", func(t *testing.T) {
		qs := newQuestions()
		qs[0].CorrectIndex = intPtr(5)
		_, err := app.QuizSvc.Create(ctx, instr, quiz.NewQuiz{CourseID: c.ID, Title: "Q", Questions: qs})
		assert.EqualError(t, err, "question 1: correct_index out of range")
	})

	t.Run("create: lesson of another course", func(t *testing.T) {
		_, err := app.QuizSvc.Create(ctx, instr, quiz.NewQuiz{CourseID: c.ID, LessonID: otherL.ID, Title: "Q", Questions: newQuestions()})
		assert.EqualError(t, err, "lesson does not belong to this course")
	})

	q, err := app.QuizSvc.Create(ctx, instr, quiz.NewQuiz{CourseID: c.ID, LessonID: l.ID, Title: " Basics ", MaxAttempts: 2, Questions: newQuestions()})
	require.NoError(t, err)
	assert.Equal(t, "Basics", q.Title)
	assert.Equal(t, 60, q.PassingPercent)
	assert.Equal(t, 1, q.Questions[1].Points)
	assert.Equal(t, 4, q.MaxScore())

	t.Run("answers hidden from students", func(t *testing.T) {
		got, err := app.QuizSvc.Get(ctx, student, q.ID)
		require.NoError(t, err)
		for _, qn := range got.Questions {
			assert.Nil(t, qn.CorrectIndex)
		}

		got, err = app.QuizSvc.Get(ctx, instr, q.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.Questions[0].CorrectIndex)

		_, err = app.QuizSvc.Get(ctx, outsider, q.ID)
		assert.True(t, core.IsPermissionError(err))

		quizzes, total, err := app.QuizSvc.List(ctx, student, c.ID, core.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Nil(t, quizzes[0].Questions[0].CorrectIndex)
	})

	t.Run("attempts", func(t *testing.T) {
		_, err := app.QuizSvc.Attempt(ctx, outsider, q.ID, quiz.SubmitAttempt{Answers: []int{1, 0, 1}})
		assert.True(t, core.IsPermissionError(err))

		_, err = app.QuizSvc.Attempt(ctx, student, q.ID, quiz.SubmitAttempt{Answers: []int{1}})
		assert.EqualError(t, err, "expected 3 answers")

		_, err = app.QuizSvc.Attempt(ctx, student, q.ID, quiz.SubmitAttempt{Answers: []int{1, 3, 1}})
		assert.EqualError(t, err, "answer 2 out of range")

		a, err := app.QuizSvc.Attempt(ctx, student, q.ID, quiz.SubmitAttempt{Answers: []int{0, 0, 0}})
		require.NoError(t, err)
		assert.Equal(t, 1, a.Score)
		assert.False(t, a.Passed)

		lp, err := app.ProgressRepo.GetLessonProgress(ctx, student.ID, l.ID)
		assert.Equal(t, progress.ErrNotFound, err)

		a, err = app.QuizSvc.Attempt(ctx, student, q.ID, quiz.SubmitAttempt{Answers: []int{1, 0, -1}})
		require.NoError(t, err)
		assert.Equal(t, 3, a.Score)
		assert.Equal(t, 75, a.Percent)
		assert.True(t, a.Passed)

		// passing completes the quiz lesson
		lp, err = app.ProgressRepo.GetLessonProgress(ctx, student.ID, l.ID)
		require.NoError(t, err)
		assert.True(t, lp.Completed)

		// max attempts reached (the course got completed too)
		_, err = app.QuizSvc.Attempt(ctx, student, q.ID, quiz.SubmitAttempt{Answers: []int{1, 0, 1}})
		assert.Error(t, err)

		attempts, err := app.QuizSvc.ListAttempts(ctx, student, q.ID)
		require.NoError(t, err)
		assert.Len(t, attempts, 2)
	})

	t.Run("update and delete", func(t *testing.T) {
		_, err := app.QuizSvc.Update(ctx, rival, q.ID, quiz.UpdateQuiz{MaxAttempts: intPtr(0)})
		assert.True(t, core.IsPermissionError(err))

		updated, err := app.QuizSvc.Update(ctx, instr, q.ID, quiz.UpdateQuiz{PassingPercent: intPtr(80), Questions: newQuestions()[:1]})
		require.NoError(t, err)
		assert.Equal(t, 80, updated.PassingPercent)
		assert.Len(t, updated.Questions, 1)

		require.NoError(t, app.QuizSvc.Delete(ctx, instr, q.ID))
		_, err = app.QuizSvc.Get(ctx, instr, q.ID)
		assert.Equal(t, quiz.ErrNotFound, err)
	})
}
