package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/manabi/lms/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

func progressKey(userID, lessonID string) string {
	return userID + "/" + lessonID
}

// date drops the clock part of day, keeping its calendar date as a UTC midnight like a DATE column.
func date(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func (repo progressRepository) GetLessonProgress(_ context.Context, userID, lessonID string) (progress.LessonProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lp, ok := repo.db.progress[progressKey(userID, lessonID)]
	if !ok {
		return progress.LessonProgress{}, progress.ErrNotFound
	}
	return lp, nil
}

func (repo progressRepository) SaveLessonProgress(_ context.Context, lp progress.LessonProgress) (progress.LessonProgress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := progressKey(lp.UserID, lp.LessonID)
	if saved, ok := repo.db.progress[key]; ok {
		lp.ID = saved.ID
		// completion is sticky
		lp.Completed = saved.Completed || lp.Completed
		if saved.CompletedAt != nil {
			lp.CompletedAt = saved.CompletedAt
		}
	} else if lp.ID == "" {
		lp.ID = newID()
	}
	repo.db.progress[key] = lp
	return lp, nil
}

func (repo progressRepository) ListLessonProgress(_ context.Context, userID, courseID string) ([]progress.LessonProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lps := make([]progress.LessonProgress, 0)
	for _, lp := range repo.db.progress {
		if lp.UserID == userID && lp.CourseID == courseID {
			lps = append(lps, lp)
		}
	}
	sort.SliceStable(lps, func(i, j int) bool { return lps[i].UpdatedAt.Before(lps[j].UpdatedAt) })
	return lps, nil
}

func (repo progressRepository) CountCompletedLessons(_ context.Context, userID, courseID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	n := 0
	for _, lp := range repo.db.progress {
		if lp.UserID == userID && lp.CourseID == courseID && lp.Completed {
			n++
		}
	}
	return n, nil
}

func (repo progressRepository) RecordActivity(_ context.Context, userID string, day time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	days, ok := repo.db.activity[userID]
	if !ok {
		days = make(map[time.Time]bool)
		repo.db.activity[userID] = days
	}
	days[date(day)] = true
	return nil
}

func (repo progressRepository) ActivityDays(_ context.Context, userID string) ([]time.Time, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	days := make([]time.Time, 0, len(repo.db.activity[userID]))
	for d := range repo.db.activity[userID] {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

func (repo progressRepository) UsersActiveOn(_ context.Context, day time.Time) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	d := date(day)
	ids := make([]string, 0)
	for userID, days := range repo.db.activity {
		if days[d] {
			ids = append(ids, userID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
