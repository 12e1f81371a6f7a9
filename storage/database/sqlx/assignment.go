package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/assignment"
)

const (
	assignmentColumns = "id, course_id, lesson_id, title, description, due_at, max_score, allow_late, created_at, updated_at"
	submissionColumns = "id, assignment_id, course_id, user_id, content, attachment_url, status, score, feedback, is_late, submitted_at, graded_at, graded_by"
)

type (
	assignmentRow struct {
		ID          string      `db:"id"`
		CourseID    string      `db:"course_id"`
		LessonID    null.String `db:"lesson_id"`
		Title       string      `db:"title"`
		Description string      `db:"description"`
		DueAt       null.Time   `db:"due_at"`
		MaxScore    int         `db:"max_score"`
		AllowLate   bool        `db:"allow_late"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	submissionRow struct {
		ID            string      `db:"id"`
		AssignmentID  string      `db:"assignment_id"`
		CourseID      string      `db:"course_id"`
		UserID        string      `db:"user_id"`
		Content       string      `db:"content"`
		AttachmentURL null.String `db:"attachment_url"`
		Status        string      `db:"status"`
		Score         null.Int    `db:"score"`
		Feedback      string      `db:"feedback"`
		IsLate        bool        `db:"is_late"`
		SubmittedAt   time.Time   `db:"submitted_at"`
		GradedAt      null.Time   `db:"graded_at"`
		GradedBy      null.String `db:"graded_by"`
	}
)

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo assignmentRepository) boil(a assignment.Assignment) assignmentRow {
	return assignmentRow{
		ID:          a.ID,
		CourseID:    a.CourseID,
		LessonID:    null.NewString(a.LessonID, a.LessonID != ""),
		Title:       a.Title,
		Description: a.Description,
		DueAt:       null.TimeFromPtr(a.DueAt),
		MaxScore:    a.MaxScore,
		AllowLate:   a.AllowLate,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

func (repo assignmentRepository) unboil(row assignmentRow) assignment.Assignment {
	return assignment.Assignment{
		ID:          row.ID,
		CourseID:    row.CourseID,
		LessonID:    row.LessonID.String,
		Title:       row.Title,
		Description: row.Description,
		DueAt:       utcPtr(row.DueAt),
		MaxScore:    row.MaxScore,
		AllowLate:   row.AllowLate,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (repo assignmentRepository) boilSubmission(s assignment.Submission) submissionRow {
	row := submissionRow{
		ID:            s.ID,
		AssignmentID:  s.AssignmentID,
		CourseID:      s.CourseID,
		UserID:        s.UserID,
		Content:       s.Content,
		AttachmentURL: null.NewString(s.AttachmentURL, s.AttachmentURL != ""),
		Status:        s.Status,
		Feedback:      s.Feedback,
		IsLate:        s.IsLate,
		SubmittedAt:   s.SubmittedAt.UTC(),
		GradedAt:      null.TimeFromPtr(s.GradedAt),
		GradedBy:      null.NewString(s.GradedBy, s.GradedBy != ""),
	}
	if s.Score != nil {
		row.Score = null.IntFrom(*s.Score)
	}
	return row
}

func (repo assignmentRepository) unboilSubmission(row submissionRow) assignment.Submission {
	s := assignment.Submission{
		ID:            row.ID,
		AssignmentID:  row.AssignmentID,
		CourseID:      row.CourseID,
		UserID:        row.UserID,
		Content:       row.Content,
		AttachmentURL: row.AttachmentURL.String,
		Status:        row.Status,
		Feedback:      row.Feedback,
		IsLate:        row.IsLate,
		SubmittedAt:   row.SubmittedAt.UTC(),
		GradedAt:      utcPtr(row.GradedAt),
		GradedBy:      row.GradedBy.String,
	}
	if row.Score.Valid {
		score := row.Score.Int
		s.Score = &score
	}
	return s
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.ID = uuid.New().String()
	q := `INSERT INTO assignments (` + assignmentColumns + `)
		VALUES (:id, :course_id, :lesson_id, :title, :description, :due_at, :max_score, :allow_late, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(a)); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	if !validID(id) {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	q := repo.db.Rebind("SELECT " + assignmentColumns + " FROM assignments WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment")
	}
	return repo.unboil(row), nil
}

func (repo assignmentRepository) QueryAssignments(ctx context.Context, courseID string, page core.Pagination) ([]assignment.Assignment, int, error) {
	var w where
	w.add("course_id = ?", courseID)

	var rows []assignmentRow
	total, err := paginate(ctx, repo.db, &rows, assignmentColumns, "assignments", w, " ORDER BY due_at NULLS LAST, created_at", page)
	if err != nil {
		return nil, 0, err
	}
	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, repo.unboil(row))
	}
	return assignments, total, nil
}

func (repo assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	q := `UPDATE assignments SET title = :title, description = :description, due_at = :due_at,
		max_score = :max_score, allow_late = :allow_late, updated_at = :updated_at WHERE id = :id`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(a)); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return a, nil
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	q := repo.db.Rebind("DELETE FROM assignments WHERE id = ?")
	if _, err := repo.db.ExecContext(ctx, q, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return nil
}

// Submissions

func (repo assignmentRepository) CreateSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO submissions (` + submissionColumns + `)
		VALUES (:id, :assignment_id, :course_id, :user_id, :content, :attachment_url, :status, :score, :feedback, :is_late, :submitted_at, :graded_at, :graded_by)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boilSubmission(s)); err != nil {
		return assignment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo assignmentRepository) GetSubmission(ctx context.Context, filter assignment.SubmissionGetFilter) (assignment.Submission, error) {
	var w where
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.AssignmentID != "" && filter.UserID != "":
		w.add("assignment_id = ?", filter.AssignmentID)
		w.add("user_id = ?", filter.UserID)
	default:
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}

	var row submissionRow
	q := repo.db.Rebind("SELECT " + submissionColumns + " FROM submissions" + w.String())
	if err := repo.db.GetContext(ctx, &row, q, w.args...); err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "finding submission")
	}
	return repo.unboilSubmission(row), nil
}

func (repo assignmentRepository) QuerySubmissions(ctx context.Context, filter assignment.SubmissionFilter, page core.Pagination) ([]assignment.Submission, int, error) {
	var w where
	if filter.AssignmentID != "" {
		w.add("assignment_id = ?", filter.AssignmentID)
	}
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	var rows []submissionRow
	total, err := paginate(ctx, repo.db, &rows, submissionColumns, "submissions", w, " ORDER BY submitted_at DESC", page)
	if err != nil {
		return nil, 0, err
	}
	submissions := make([]assignment.Submission, 0, len(rows))
	for _, row := range rows {
		submissions = append(submissions, repo.unboilSubmission(row))
	}
	return submissions, total, nil
}

func (repo assignmentRepository) UpdateSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	q := `UPDATE submissions SET content = :content, attachment_url = :attachment_url, status = :status, score = :score,
		feedback = :feedback, is_late = :is_late, submitted_at = :submitted_at, graded_at = :graded_at, graded_by = :graded_by
		WHERE id = :id`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boilSubmission(s)); err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	return s, nil
}
