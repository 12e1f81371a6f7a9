package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/quiz"
)

const (
	quizColumns    = "id, course_id, lesson_id, title, passing_percent, max_attempts, questions, created_at, updated_at"
	attemptColumns = "id, quiz_id, user_id, answers, score, max_score, percent, passed, submitted_at"
)

type (
	quizRow struct {
		ID             string         `db:"id"`
		CourseID       string         `db:"course_id"`
		LessonID       null.String    `db:"lesson_id"`
		Title          string         `db:"title"`
		PassingPercent int            `db:"passing_percent"`
		MaxAttempts    int            `db:"max_attempts"`
		Questions      types.JSONText `db:"questions"`
		CreatedAt      time.Time      `db:"created_at"`
		UpdatedAt      time.Time      `db:"updated_at"`
	}

	attemptRow struct {
		ID          string         `db:"id"`
		QuizID      string         `db:"quiz_id"`
		UserID      string         `db:"user_id"`
		Answers     types.JSONText `db:"answers"`
		Score       int            `db:"score"`
		MaxScore    int            `db:"max_score"`
		Percent     int            `db:"percent"`
		Passed      bool           `db:"passed"`
		SubmittedAt time.Time      `db:"submitted_at"`
	}
)

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) quiz.Repository {
	return &quizRepository{db: db}
}

func (repo quizRepository) boil(q quiz.Quiz) (quizRow, error) {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return quizRow{}, errors.Wrap(err, "encoding questions")
	}
	return quizRow{
		ID:             q.ID,
		CourseID:       q.CourseID,
		LessonID:       null.NewString(q.LessonID, q.LessonID != ""),
		Title:          q.Title,
		PassingPercent: q.PassingPercent,
		MaxAttempts:    q.MaxAttempts,
		Questions:      questions,
		CreatedAt:      q.CreatedAt.UTC(),
		UpdatedAt:      q.UpdatedAt.UTC(),
	}, nil
}

func (repo quizRepository) unboil(row quizRow) (quiz.Quiz, error) {
	q := quiz.Quiz{
		ID:             row.ID,
		CourseID:       row.CourseID,
		LessonID:       row.LessonID.String,
		Title:          row.Title,
		PassingPercent: row.PassingPercent,
		MaxAttempts:    row.MaxAttempts,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if err := row.Questions.Unmarshal(&q.Questions); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "decoding questions")
	}
	return q, nil
}

func (repo quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	q.ID = uuid.New().String()
	row, err := repo.boil(q)
	if err != nil {
		return quiz.Quiz{}, err
	}
	stmt := `INSERT INTO quizzes (` + quizColumns + `)
		VALUES (:id, :course_id, :lesson_id, :title, :passing_percent, :max_attempts, :questions, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, stmt, row); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return q, nil
}

func (repo quizRepository) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	if !validID(id) {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	var row quizRow
	stmt := repo.db.Rebind("SELECT " + quizColumns + " FROM quizzes WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, stmt, id); err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "finding quiz")
	}
	return repo.unboil(row)
}

func (repo quizRepository) QueryQuizzes(ctx context.Context, courseID string, page core.Pagination) ([]quiz.Quiz, int, error) {
	var w where
	w.add("course_id = ?", courseID)

	var rows []quizRow
	total, err := paginate(ctx, repo.db, &rows, quizColumns, "quizzes", w, " ORDER BY created_at", page)
	if err != nil {
		return nil, 0, err
	}
	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, row := range rows {
		q, err := repo.unboil(row)
		if err != nil {
			return nil, 0, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, total, nil
}

func (repo quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	row, err := repo.boil(q)
	if err != nil {
		return quiz.Quiz{}, err
	}
	stmt := `UPDATE quizzes SET title = :title, passing_percent = :passing_percent, max_attempts = :max_attempts,
		questions = :questions, updated_at = :updated_at WHERE id = :id`
	if _, err = repo.db.NamedExecContext(ctx, stmt, row); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	return q, nil
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, id string) error {
	stmt := repo.db.Rebind("DELETE FROM quizzes WHERE id = ?")
	if _, err := repo.db.ExecContext(ctx, stmt, id); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return nil
}

func (repo quizRepository) CreateAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	a.ID = uuid.New().String()
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "encoding answers")
	}
	row := attemptRow{
		ID:          a.ID,
		QuizID:      a.QuizID,
		UserID:      a.UserID,
		Answers:     answers,
		Score:       a.Score,
		MaxScore:    a.MaxScore,
		Percent:     a.Percent,
		Passed:      a.Passed,
		SubmittedAt: a.SubmittedAt.UTC(),
	}
	stmt := `INSERT INTO quiz_attempts (` + attemptColumns + `)
		VALUES (:id, :quiz_id, :user_id, :answers, :score, :max_score, :percent, :passed, :submitted_at)`
	if _, err = repo.db.NamedExecContext(ctx, stmt, row); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return a, nil
}

func (repo quizRepository) CountAttempts(ctx context.Context, quizID, userID string) (int, error) {
	var n int
	stmt := repo.db.Rebind("SELECT COUNT(*) FROM quiz_attempts WHERE quiz_id = ? AND user_id = ?")
	if err := repo.db.GetContext(ctx, &n, stmt, quizID, userID); err != nil {
		return 0, errors.Wrap(err, "counting attempts")
	}
	return n, nil
}

func (repo quizRepository) ListAttempts(ctx context.Context, quizID, userID string) ([]quiz.Attempt, error) {
	var rows []attemptRow
	stmt := repo.db.Rebind("SELECT " + attemptColumns + " FROM quiz_attempts WHERE quiz_id = ? AND user_id = ? ORDER BY submitted_at")
	if err := repo.db.SelectContext(ctx, &rows, stmt, quizID, userID); err != nil {
		return nil, errors.Wrap(err, "listing attempts")
	}
	attempts := make([]quiz.Attempt, 0, len(rows))
	for _, row := range rows {
		a := quiz.Attempt{
			ID:          row.ID,
			QuizID:      row.QuizID,
			UserID:      row.UserID,
			Score:       row.Score,
			MaxScore:    row.MaxScore,
			Percent:     row.Percent,
			Passed:      row.Passed,
			SubmittedAt: row.SubmittedAt.UTC(),
		}
		if err := row.Answers.Unmarshal(&a.Answers); err != nil {
			return nil, errors.Wrap(err, "decoding answers")
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}
