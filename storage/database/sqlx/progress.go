package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/manabi/lms/core/progress"
)

const progressColumns = "id, user_id, course_id, lesson_id, completed, watch_position_seconds, completed_at, updated_at"

type progressRow struct {
	ID                   string    `db:"id"`
	UserID               string    `db:"user_id"`
	CourseID             string    `db:"course_id"`
	LessonID             string    `db:"lesson_id"`
	Completed            bool      `db:"completed"`
	WatchPositionSeconds int       `db:"watch_position_seconds"`
	CompletedAt          null.Time `db:"completed_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo progressRepository) boil(lp progress.LessonProgress) progressRow {
	return progressRow{
		ID:                   lp.ID,
		UserID:               lp.UserID,
		CourseID:             lp.CourseID,
		LessonID:             lp.LessonID,
		Completed:            lp.Completed,
		WatchPositionSeconds: lp.WatchPositionSeconds,
		CompletedAt:          null.TimeFromPtr(lp.CompletedAt),
		UpdatedAt:            lp.UpdatedAt.UTC(),
	}
}

func (repo progressRepository) unboil(row progressRow) progress.LessonProgress {
	return progress.LessonProgress{
		ID:                   row.ID,
		UserID:               row.UserID,
		CourseID:             row.CourseID,
		LessonID:             row.LessonID,
		Completed:            row.Completed,
		WatchPositionSeconds: row.WatchPositionSeconds,
		CompletedAt:          utcPtr(row.CompletedAt),
		UpdatedAt:            row.UpdatedAt.UTC(),
	}
}

func (repo progressRepository) GetLessonProgress(ctx context.Context, userID, lessonID string) (progress.LessonProgress, error) {
	var row progressRow
	q := repo.db.Rebind("SELECT " + progressColumns + " FROM lesson_progress WHERE user_id = ? AND lesson_id = ?")
	if err := repo.db.GetContext(ctx, &row, q, userID, lessonID); err != nil {
		return progress.LessonProgress{}, trapNoRowsErr(err, progress.ErrNotFound, "finding lesson progress")
	}
	return repo.unboil(row), nil
}

func (repo progressRepository) SaveLessonProgress(ctx context.Context, lp progress.LessonProgress) (progress.LessonProgress, error) {
	if lp.ID == "" {
		lp.ID = uuid.New().String()
	}
	// completion is sticky: never overwrite a completed record with an incomplete one
	q := `INSERT INTO lesson_progress (` + progressColumns + `)
		VALUES (:id, :user_id, :course_id, :lesson_id, :completed, :watch_position_seconds, :completed_at, :updated_at)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			completed = lesson_progress.completed OR EXCLUDED.completed,
			watch_position_seconds = EXCLUDED.watch_position_seconds,
			completed_at = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + progressColumns
	rows, err := repo.db.NamedQueryContext(ctx, q, repo.boil(lp))
	if err != nil {
		return progress.LessonProgress{}, errors.Wrap(err, "saving lesson progress")
	}
	defer func() { _ = rows.Close() }()

	var row progressRow
	if rows.Next() {
		if err = rows.StructScan(&row); err != nil {
			return progress.LessonProgress{}, errors.Wrap(err, "scanning lesson progress")
		}
	}
	if err = rows.Err(); err != nil {
		return progress.LessonProgress{}, errors.Wrap(err, "saving lesson progress")
	}
	return repo.unboil(row), nil
}

func (repo progressRepository) ListLessonProgress(ctx context.Context, userID, courseID string) ([]progress.LessonProgress, error) {
	var rows []progressRow
	q := repo.db.Rebind("SELECT " + progressColumns + " FROM lesson_progress WHERE user_id = ? AND course_id = ? ORDER BY updated_at")
	if err := repo.db.SelectContext(ctx, &rows, q, userID, courseID); err != nil {
		return nil, errors.Wrap(err, "listing lesson progress")
	}
	lps := make([]progress.LessonProgress, 0, len(rows))
	for _, row := range rows {
		lps = append(lps, repo.unboil(row))
	}
	return lps, nil
}

func (repo progressRepository) CountCompletedLessons(ctx context.Context, userID, courseID string) (int, error) {
	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM lesson_progress WHERE user_id = ? AND course_id = ? AND completed")
	if err := repo.db.GetContext(ctx, &n, q, userID, courseID); err != nil {
		return 0, errors.Wrap(err, "counting completed lessons")
	}
	return n, nil
}

func (repo progressRepository) RecordActivity(ctx context.Context, userID string, day time.Time) error {
	q := repo.db.Rebind("INSERT INTO learning_activity (user_id, activity_date) VALUES (?, ?) ON CONFLICT DO NOTHING")
	if _, err := repo.db.ExecContext(ctx, q, userID, day.Format("2006-01-02")); err != nil {
		return errors.Wrap(err, "recording activity")
	}
	return nil
}

func (repo progressRepository) ActivityDays(ctx context.Context, userID string) ([]time.Time, error) {
	var days []time.Time
	q := repo.db.Rebind("SELECT activity_date FROM learning_activity WHERE user_id = ? ORDER BY activity_date")
	if err := repo.db.SelectContext(ctx, &days, q, userID); err != nil {
		return nil, errors.Wrap(err, "listing activity days")
	}
	return days, nil
}

func (repo progressRepository) UsersActiveOn(ctx context.Context, day time.Time) ([]string, error) {
	var ids []string
	q := repo.db.Rebind("SELECT user_id FROM learning_activity WHERE activity_date = ?")
	if err := repo.db.SelectContext(ctx, &ids, q, day.Format("2006-01-02")); err != nil {
		return nil, errors.Wrap(err, "listing active users")
	}
	return ids, nil
}
