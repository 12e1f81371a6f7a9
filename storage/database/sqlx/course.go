package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/course"
)

const (
	courseColumns = "id, title, description, category, level, price, currency, is_published, instructor_id, thumbnail_url, created_at, updated_at, " +
		"(SELECT COUNT(*) FROM lessons WHERE lessons.course_id = courses.id) AS lesson_count"
	chapterColumns = "id, course_id, title, position, created_at, updated_at"
	lessonColumns  = "id, course_id, chapter_id, title, content, video_url, duration_seconds, position, is_preview, created_at, updated_at"
)

type (
	courseRow struct {
		ID           string      `db:"id"`
		Title        string      `db:"title"`
		Description  string      `db:"description"`
		Category     string      `db:"category"`
		Level        string      `db:"level"`
		Price        int64       `db:"price"`
		Currency     string      `db:"currency"`
		IsPublished  bool        `db:"is_published"`
		InstructorID string      `db:"instructor_id"`
		ThumbnailURL null.String `db:"thumbnail_url"`
		LessonCount  int         `db:"lesson_count"`
		CreatedAt    time.Time   `db:"created_at"`
		UpdatedAt    time.Time   `db:"updated_at"`
	}

	chapterRow struct {
		ID        string    `db:"id"`
		CourseID  string    `db:"course_id"`
		Title     string    `db:"title"`
		Position  int       `db:"position"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	lessonRow struct {
		ID              string      `db:"id"`
		CourseID        string      `db:"course_id"`
		ChapterID       string      `db:"chapter_id"`
		Title           string      `db:"title"`
		Content         string      `db:"content"`
		VideoURL        null.String `db:"video_url"`
		DurationSeconds int         `db:"duration_seconds"`
		Position        int         `db:"position"`
		IsPreview       bool        `db:"is_preview"`
		CreatedAt       time.Time   `db:"created_at"`
		UpdatedAt       time.Time   `db:"updated_at"`
	}
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo courseRepository) boilCourse(c course.Course) courseRow {
	return courseRow{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Category:     c.Category,
		Level:        c.Level,
		Price:        c.Price,
		Currency:     c.Currency,
		IsPublished:  c.IsPublished,
		InstructorID: c.InstructorID,
		ThumbnailURL: null.NewString(c.ThumbnailURL, c.ThumbnailURL != ""),
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) unboilCourse(row courseRow) course.Course {
	return course.Course{
		ID:           row.ID,
		Title:        row.Title,
		Description:  row.Description,
		Category:     row.Category,
		Level:        row.Level,
		Price:        row.Price,
		Currency:     row.Currency,
		IsPublished:  row.IsPublished,
		InstructorID: row.InstructorID,
		ThumbnailURL: row.ThumbnailURL.String,
		LessonCount:  row.LessonCount,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO courses (id, title, description, category, level, price, currency, is_published, instructor_id, thumbnail_url, created_at, updated_at)
		VALUES (:id, :title, :description, :category, :level, :price, :currency, :is_published, :instructor_id, :thumbnail_url, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boilCourse(c)); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	q := repo.db.Rebind("SELECT " + courseColumns + " FROM courses WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return repo.unboilCourse(row), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]course.Course, int, error) {
	var w where
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		w.add("(title ILIKE ? OR description ILIKE ?)", val, val)
	}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if filter.Level != "" {
		w.add("level = ?", filter.Level)
	}
	if filter.InstructorID != "" {
		if !validID(filter.InstructorID) {
			return []course.Course{}, 0, nil
		}
		w.add("instructor_id = ?", filter.InstructorID)
	}
	if filter.IsPublished != nil {
		w.add("is_published = ?", *filter.IsPublished)
	}
	if filter.Free != nil {
		if *filter.Free {
			w.add("price = 0")
		} else {
			w.add("price > 0")
		}
	}
	if filter.PriceMin != nil {
		w.add("price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		w.add("price <= ?", *filter.PriceMax)
	}
	if filter.VisibleTo != "" {
		w.add("(is_published = TRUE OR instructor_id = ?)", filter.VisibleTo)
	}

	var rows []courseRow
	total, err := paginate(ctx, repo.db, &rows, courseColumns, "courses", w, orderBy(ordering), page)
	if err != nil {
		return nil, 0, err
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.unboilCourse(row))
	}
	return courses, total, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `UPDATE courses SET title = :title, description = :description, category = :category, level = :level,
		price = :price, currency = :currency, is_published = :is_published, thumbnail_url = :thumbnail_url, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boilCourse(c))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrNotFound
	}
	q := repo.db.Rebind("DELETE FROM courses WHERE id = ?")
	if _, err := repo.db.ExecContext(ctx, q, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

// Chapters

func (repo courseRepository) CreateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	ch.ID = uuid.New().String()
	q := `INSERT INTO chapters (` + chapterColumns + `) VALUES (:id, :course_id, :title, :position, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, chapterRow(ch)); err != nil {
		return course.Chapter{}, errors.Wrap(err, "inserting chapter")
	}
	return ch, nil
}

func (repo courseRepository) GetChapter(ctx context.Context, id string) (course.Chapter, error) {
	if !validID(id) {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	var row chapterRow
	q := repo.db.Rebind("SELECT " + chapterColumns + " FROM chapters WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return course.Chapter{}, trapNoRowsErr(err, course.ErrChapterNotFound, "finding chapter")
	}
	return course.Chapter(row), nil
}

func (repo courseRepository) ListChapters(ctx context.Context, courseID string) ([]course.Chapter, error) {
	var rows []chapterRow
	q := repo.db.Rebind("SELECT " + chapterColumns + " FROM chapters WHERE course_id = ? ORDER BY position")
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing chapters")
	}
	chapters := make([]course.Chapter, 0, len(rows))
	for _, row := range rows {
		chapters = append(chapters, course.Chapter(row))
	}
	return chapters, nil
}

func (repo courseRepository) UpdateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	q := `UPDATE chapters SET title = :title, position = :position, updated_at = :updated_at WHERE id = :id`
	if _, err := repo.db.NamedExecContext(ctx, q, chapterRow(ch)); err != nil {
		return course.Chapter{}, errors.Wrap(err, "updating chapter")
	}
	return ch, nil
}

func (repo courseRepository) DeleteChapter(ctx context.Context, id string) error {
	q := repo.db.Rebind("DELETE FROM chapters WHERE id = ?")
	if _, err := repo.db.ExecContext(ctx, q, id); err != nil {
		return errors.Wrap(err, "deleting chapter")
	}
	return nil
}

// Lessons

func (repo courseRepository) boilLesson(l course.Lesson) lessonRow {
	return lessonRow{
		ID:              l.ID,
		CourseID:        l.CourseID,
		ChapterID:       l.ChapterID,
		Title:           l.Title,
		Content:         l.Content,
		VideoURL:        null.NewString(l.VideoURL, l.VideoURL != ""),
		DurationSeconds: l.DurationSeconds,
		Position:        l.Position,
		IsPreview:       l.IsPreview,
		CreatedAt:       l.CreatedAt.UTC(),
		UpdatedAt:       l.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) unboilLesson(row lessonRow) course.Lesson {
	return course.Lesson{
		ID:              row.ID,
		CourseID:        row.CourseID,
		ChapterID:       row.ChapterID,
		Title:           row.Title,
		Content:         row.Content,
		VideoURL:        row.VideoURL.String,
		DurationSeconds: row.DurationSeconds,
		Position:        row.Position,
		IsPreview:       row.IsPreview,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	l.ID = uuid.New().String()
	q := `INSERT INTO lessons (` + lessonColumns + `)
		VALUES (:id, :course_id, :chapter_id, :title, :content, :video_url, :duration_seconds, :position, :is_preview, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boilLesson(l)); err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo courseRepository) GetLesson(ctx context.Context, id string) (course.Lesson, error) {
	if !validID(id) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	var row lessonRow
	q := repo.db.Rebind("SELECT " + lessonColumns + " FROM lessons WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "finding lesson")
	}
	return repo.unboilLesson(row), nil
}

func (repo courseRepository) ListLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	var rows []lessonRow
	q := repo.db.Rebind("SELECT " + lessonColumns + " FROM lessons WHERE course_id = ? ORDER BY position")
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, repo.unboilLesson(row))
	}
	return lessons, nil
}

func (repo courseRepository) UpdateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	q := `UPDATE lessons SET title = :title, content = :content, video_url = :video_url, duration_seconds = :duration_seconds,
		position = :position, is_preview = :is_preview, updated_at = :updated_at WHERE id = :id`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boilLesson(l)); err != nil {
		return course.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return l, nil
}

func (repo courseRepository) DeleteLesson(ctx context.Context, id string) error {
	q := repo.db.Rebind("DELETE FROM lessons WHERE id = ?")
	if _, err := repo.db.ExecContext(ctx, q, id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return nil
}

func (repo courseRepository) CountLessons(ctx context.Context, courseID string) (int, error) {
	if !validID(courseID) {
		return 0, nil
	}
	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM lessons WHERE course_id = ?")
	if err := repo.db.GetContext(ctx, &n, q, courseID); err != nil {
		return 0, errors.Wrap(err, "counting lessons")
	}
	return n, nil
}
