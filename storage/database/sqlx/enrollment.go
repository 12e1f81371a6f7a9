package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/enrollment"
)

const enrollmentColumns = "id, user_id, course_id, status, progress_percent, enrolled_at, completed_at, updated_at"

type enrollmentRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	CourseID        string    `db:"course_id"`
	Status          string    `db:"status"`
	ProgressPercent int       `db:"progress_percent"`
	EnrolledAt      time.Time `db:"enrolled_at"`
	CompletedAt     null.Time `db:"completed_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) boil(e enrollment.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:              e.ID,
		UserID:          e.UserID,
		CourseID:        e.CourseID,
		Status:          e.Status,
		ProgressPercent: e.ProgressPercent,
		EnrolledAt:      e.EnrolledAt.UTC(),
		CompletedAt:     null.TimeFromPtr(e.CompletedAt),
		UpdatedAt:       e.UpdatedAt.UTC(),
	}
}

func (repo enrollmentRepository) unboil(row enrollmentRow) enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:              row.ID,
		UserID:          row.UserID,
		CourseID:        row.CourseID,
		Status:          row.Status,
		ProgressPercent: row.ProgressPercent,
		EnrolledAt:      row.EnrolledAt.UTC(),
		CompletedAt:     utcPtr(row.CompletedAt),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	e.ID = uuid.New().String()
	q := `INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES (:id, :user_id, :course_id, :status, :progress_percent, :enrolled_at, :completed_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(e)); err != nil {
		if isUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, filter enrollment.GetFilter) (enrollment.Enrollment, error) {
	var w where
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.UserID != "" && filter.CourseID != "":
		if !validID(filter.UserID) || !validID(filter.CourseID) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		w.add("user_id = ?", filter.UserID)
		w.add("course_id = ?", filter.CourseID)
	default:
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}

	var row enrollmentRow
	q := repo.db.Rebind("SELECT " + enrollmentColumns + " FROM enrollments" + w.String())
	if err := repo.db.GetContext(ctx, &row, q, w.args...); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return repo.unboil(row), nil
}

func (repo enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter, page core.Pagination) ([]enrollment.Enrollment, int, error) {
	var w where
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.CourseID != "" {
		w.add("course_id = ?", filter.CourseID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	var rows []enrollmentRow
	total, err := paginate(ctx, repo.db, &rows, enrollmentColumns, "enrollments", w, " ORDER BY enrolled_at DESC", page)
	if err != nil {
		return nil, 0, err
	}
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, repo.unboil(row))
	}
	return enrollments, total, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	q := `UPDATE enrollments SET status = :status, progress_percent = :progress_percent,
		completed_at = :completed_at, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boil(e))
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return e, nil
}

func (repo enrollmentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	q := repo.db.Rebind("DELETE FROM enrollments WHERE id = ?")
	if _, err := repo.db.ExecContext(ctx, q, id); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return nil
}
