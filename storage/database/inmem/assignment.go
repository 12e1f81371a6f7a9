package inmemdb

import (
	"context"
	"sort"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = newID()
	repo.db.assignments[a.ID] = a
	return a, nil
}

func (repo assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	a, ok := repo.db.assignments[id]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return a, nil
}

// QueryAssignments orders by due date (undated last), then creation.
func (repo assignmentRepository) QueryAssignments(_ context.Context, courseID string, page core.Pagination) ([]assignment.Assignment, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignments {
		if a.CourseID == courseID {
			assignments = append(assignments, a)
		}
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		switch {
		case a.DueAt != nil && b.DueAt == nil:
			return true
		case a.DueAt == nil && b.DueAt != nil:
			return false
		case a.DueAt != nil && !a.DueAt.Equal(*b.DueAt):
			return a.DueAt.Before(*b.DueAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	start, end := core.Paginate(len(assignments), page)
	return assignments[start:end], len(assignments), nil
}

func (repo assignmentRepository) UpdateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[a.ID]; !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	repo.db.assignments[a.ID] = a
	return a, nil
}

func (repo assignmentRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.deleteAssignmentLocked(id)
	return nil
}

// Submissions

func (repo assignmentRepository) CreateSubmission(_ context.Context, s assignment.Submission) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = newID()
	repo.db.submissions[s.ID] = s
	return s, nil
}

func (repo assignmentRepository) GetSubmission(_ context.Context, filter assignment.SubmissionGetFilter) (assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if s, ok := repo.db.submissions[filter.ID]; ok {
			return s, nil
		}
	case filter.AssignmentID != "" && filter.UserID != "":
		for _, s := range repo.db.submissions {
			if s.AssignmentID == filter.AssignmentID && s.UserID == filter.UserID {
				return s, nil
			}
		}
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo assignmentRepository) QuerySubmissions(_ context.Context, filter assignment.SubmissionFilter, page core.Pagination) ([]assignment.Submission, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	submissions := make([]assignment.Submission, 0)
	for _, s := range repo.db.submissions {
		if filter.Match(s) {
			submissions = append(submissions, s)
		}
	}
	sort.SliceStable(submissions, func(i, j int) bool {
		return submissions[i].SubmittedAt.After(submissions[j].SubmittedAt)
	})

	start, end := core.Paginate(len(submissions), page)
	return submissions[start:end], len(submissions), nil
}

func (repo assignmentRepository) UpdateSubmission(_ context.Context, s assignment.Submission) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.submissions[s.ID]; !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	repo.db.submissions[s.ID] = s
	return s, nil
}
