// Package inmemdb implements the domain repositories in memory, with the same semantics as
// the SQL repositories (unique constraints and cascading deletes included).
package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/assignment"
	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/payment"
	"github.com/manabi/lms/core/progress"
	"github.com/manabi/lms/core/quiz"
	"github.com/manabi/lms/core/user"
)

type DB struct {
	sync.RWMutex

	users       map[string]user.User
	courses     map[string]course.Course
	chapters    map[string]course.Chapter
	lessons     map[string]course.Lesson
	enrollments map[string]enrollment.Enrollment
	progress    map[string]progress.LessonProgress
	activity    map[string]map[time.Time]bool // {user_id: {date: true}}
	assignments map[string]assignment.Assignment
	submissions map[string]assignment.Submission
	quizzes     map[string]quiz.Quiz
	attempts    map[string]quiz.Attempt
	orders      map[string]payment.Order
}

func Open() *DB {
	return &DB{
		users:       make(map[string]user.User),
		courses:     make(map[string]course.Course),
		chapters:    make(map[string]course.Chapter),
		lessons:     make(map[string]course.Lesson),
		enrollments: make(map[string]enrollment.Enrollment),
		progress:    make(map[string]progress.LessonProgress),
		activity:    make(map[string]map[time.Time]bool),
		assignments: make(map[string]assignment.Assignment),
		submissions: make(map[string]assignment.Submission),
		quizzes:     make(map[string]quiz.Quiz),
		attempts:    make(map[string]quiz.Attempt),
		orders:      make(map[string]payment.Order),
	}
}

func newID() string {
	return uuid.New().String()
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// sortByOrderings sorts n items on the given orderings. cmp compares items i and j on field
// and returns a negative, zero or positive number.
func sortByOrderings(items interface{}, ordering []core.DBOrdering, cmp func(i, j int, field string) int) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(i, j, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cascade helpers; callers hold the write lock

func (db *DB) deleteLessonLocked(id string) {
	delete(db.lessons, id)
	for k, lp := range db.progress {
		if lp.LessonID == id {
			delete(db.progress, k)
		}
	}
	for k, a := range db.assignments {
		if a.LessonID == id {
			a.LessonID = ""
			db.assignments[k] = a
		}
	}
	for k, q := range db.quizzes {
		if q.LessonID == id {
			q.LessonID = ""
			db.quizzes[k] = q
		}
	}
}

func (db *DB) deleteChapterLocked(id string) {
	delete(db.chapters, id)
	for lid, l := range db.lessons {
		if l.ChapterID == id {
			db.deleteLessonLocked(lid)
		}
	}
}

func (db *DB) deleteCourseLocked(id string) {
	delete(db.courses, id)
	for chid, ch := range db.chapters {
		if ch.CourseID == id {
			db.deleteChapterLocked(chid)
		}
	}
	for k, e := range db.enrollments {
		if e.CourseID == id {
			delete(db.enrollments, k)
		}
	}
	for k, a := range db.assignments {
		if a.CourseID == id {
			db.deleteAssignmentLocked(k)
		}
	}
	for k, q := range db.quizzes {
		if q.CourseID == id {
			db.deleteQuizLocked(k)
		}
	}
	for k, o := range db.orders {
		if o.CourseID == id {
			delete(db.orders, k)
		}
	}
}

func (db *DB) deleteAssignmentLocked(id string) {
	delete(db.assignments, id)
	for k, s := range db.submissions {
		if s.AssignmentID == id {
			delete(db.submissions, k)
		}
	}
}

func (db *DB) deleteQuizLocked(id string) {
	delete(db.quizzes, id)
	for k, a := range db.attempts {
		if a.QuizID == id {
			delete(db.attempts, k)
		}
	}
}

func (db *DB) deleteUserLocked(id string) {
	delete(db.users, id)
	delete(db.activity, id)
	for k, e := range db.enrollments {
		if e.UserID == id {
			delete(db.enrollments, k)
		}
	}
	for k, lp := range db.progress {
		if lp.UserID == id {
			delete(db.progress, k)
		}
	}
	for k, s := range db.submissions {
		if s.UserID == id {
			delete(db.submissions, k)
		}
	}
	for k, a := range db.attempts {
		if a.UserID == id {
			delete(db.attempts, k)
		}
	}
	for k, o := range db.orders {
		if o.UserID == id {
			delete(db.orders, k)
		}
	}
}

func zeroIfNil(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
