package inmemdb

import (
	"context"
	"sort"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo courseRepository) countLessonsLocked(courseID string) int {
	n := 0
	for _, l := range repo.db.lessons {
		if l.CourseID == courseID {
			n++
		}
	}
	return n
}

func (repo courseRepository) withCount(c course.Course) course.Course {
	c.LessonCount = repo.countLessonsLocked(c.ID)
	return c
}

func (repo courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = newID()
	c.LessonCount = 0
	repo.db.courses[c.ID] = c
	return c, nil
}

func (repo courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	c, ok := repo.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return repo.withCount(c), nil
}

func (repo courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]course.Course, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if filter.Match(c) {
			courses = append(courses, repo.withCount(c))
		}
	}
	sortByOrderings(courses, ordering, func(i, j int, field string) int {
		a, b := courses[i], courses[j]
		switch field {
		case "title":
			return compareStrings(a.Title, b.Title)
		case "price":
			return compareInts(a.Price, b.Price)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		case "updated_at":
			return compareTimes(a.UpdatedAt, b.UpdatedAt)
		}
		return 0
	})

	start, end := core.Paginate(len(courses), page)
	return courses[start:end], len(courses), nil
}

func (repo courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[c.ID] = c
	return c, nil
}

func (repo courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.deleteCourseLocked(id)
	return nil
}

// Chapters

func (repo courseRepository) CreateChapter(_ context.Context, ch course.Chapter) (course.Chapter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ch.ID = newID()
	repo.db.chapters[ch.ID] = ch
	return ch, nil
}

func (repo courseRepository) GetChapter(_ context.Context, id string) (course.Chapter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ch, ok := repo.db.chapters[id]
	if !ok {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	return ch, nil
}

func (repo courseRepository) ListChapters(_ context.Context, courseID string) ([]course.Chapter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	chapters := make([]course.Chapter, 0)
	for _, ch := range repo.db.chapters {
		if ch.CourseID == courseID {
			chapters = append(chapters, ch)
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Position < chapters[j].Position })
	return chapters, nil
}

func (repo courseRepository) UpdateChapter(_ context.Context, ch course.Chapter) (course.Chapter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.chapters[ch.ID]; !ok {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	repo.db.chapters[ch.ID] = ch
	return ch, nil
}

func (repo courseRepository) DeleteChapter(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.deleteChapterLocked(id)
	return nil
}

// Lessons

func (repo courseRepository) CreateLesson(_ context.Context, l course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = newID()
	l.Locked = false
	repo.db.lessons[l.ID] = l
	return l, nil
}

func (repo courseRepository) GetLesson(_ context.Context, id string) (course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	l, ok := repo.db.lessons[id]
	if !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	return l, nil
}

func (repo courseRepository) ListLessons(_ context.Context, courseID string) ([]course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]course.Lesson, 0)
	for _, l := range repo.db.lessons {
		if l.CourseID == courseID {
			lessons = append(lessons, l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Position < lessons[j].Position })
	return lessons, nil
}

func (repo courseRepository) UpdateLesson(_ context.Context, l course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[l.ID]; !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	l.Locked = false
	repo.db.lessons[l.ID] = l
	return l, nil
}

func (repo courseRepository) DeleteLesson(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.deleteLessonLocked(id)
	return nil
}

func (repo courseRepository) CountLessons(_ context.Context, courseID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.countLessonsLocked(courseID), nil
}
