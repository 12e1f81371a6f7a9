package inmemdb

import (
	"context"
	"sort"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.enrollments {
		if other.UserID == e.UserID && other.CourseID == e.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	e.ID = newID()
	repo.db.enrollments[e.ID] = e
	return e, nil
}

func (repo enrollmentRepository) GetEnrollment(_ context.Context, filter enrollment.GetFilter) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if e, ok := repo.db.enrollments[filter.ID]; ok {
			return e, nil
		}
	case filter.UserID != "" && filter.CourseID != "":
		for _, e := range repo.db.enrollments {
			if e.UserID == filter.UserID && e.CourseID == filter.CourseID {
				return e, nil
			}
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo enrollmentRepository) QueryEnrollments(_ context.Context, filter enrollment.QueryFilter, page core.Pagination) ([]enrollment.Enrollment, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if filter.Match(e) {
			enrollments = append(enrollments, e)
		}
	}
	sort.SliceStable(enrollments, func(i, j int) bool {
		return enrollments[i].EnrolledAt.After(enrollments[j].EnrolledAt)
	})

	start, end := core.Paginate(len(enrollments), page)
	return enrollments[start:end], len(enrollments), nil
}

func (repo enrollmentRepository) UpdateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[e.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	repo.db.enrollments[e.ID] = e
	return e, nil
}

func (repo enrollmentRepository) DeleteEnrollment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.enrollments, id)
	return nil
}
