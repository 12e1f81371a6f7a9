package inmemdb

import (
	"context"
	"sort"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{db: db}
}

// copyQuiz detaches the question slice so callers cannot mutate stored data.
func copyQuiz(q quiz.Quiz) quiz.Quiz {
	questions := make([]quiz.Question, len(q.Questions))
	for i, qn := range q.Questions {
		qn.Choices = append([]string(nil), qn.Choices...)
		if qn.CorrectIndex != nil {
			idx := *qn.CorrectIndex
			qn.CorrectIndex = &idx
		}
		questions[i] = qn
	}
	q.Questions = questions
	return q
}

func (repo quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q.ID = newID()
	repo.db.quizzes[q.ID] = copyQuiz(q)
	return q, nil
}

func (repo quizRepository) GetQuiz(_ context.Context, id string) (quiz.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q, ok := repo.db.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return copyQuiz(q), nil
}

func (repo quizRepository) QueryQuizzes(_ context.Context, courseID string, page core.Pagination) ([]quiz.Quiz, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	quizzes := make([]quiz.Quiz, 0)
	for _, q := range repo.db.quizzes {
		if q.CourseID == courseID {
			quizzes = append(quizzes, copyQuiz(q))
		}
	}
	sort.SliceStable(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt) })

	start, end := core.Paginate(len(quizzes), page)
	return quizzes[start:end], len(quizzes), nil
}

func (repo quizRepository) UpdateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.quizzes[q.ID]; !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	repo.db.quizzes[q.ID] = copyQuiz(q)
	return q, nil
}

func (repo quizRepository) DeleteQuiz(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.deleteQuizLocked(id)
	return nil
}

func (repo quizRepository) CreateAttempt(_ context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = newID()
	a.Answers = append([]int(nil), a.Answers...)
	repo.db.attempts[a.ID] = a
	return a, nil
}

func (repo quizRepository) CountAttempts(_ context.Context, quizID, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	n := 0
	for _, a := range repo.db.attempts {
		if a.QuizID == quizID && a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (repo quizRepository) ListAttempts(_ context.Context, quizID, userID string) ([]quiz.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	attempts := make([]quiz.Attempt, 0)
	for _, a := range repo.db.attempts {
		if a.QuizID == quizID && a.UserID == userID {
			attempts = append(attempts, a)
		}
	}
	sort.SliceStable(attempts, func(i, j int) bool { return attempts[i].SubmittedAt.Before(attempts[j].SubmittedAt) })
	return attempts, nil
}
