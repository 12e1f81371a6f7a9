package progress

import (
	"sort"
	"time"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/enrollment"
)

const dateLayout = "2006-01-02"

type LessonProgress struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	CourseID             string     `json:"course_id"`
	LessonID             string     `json:"lesson_id"`
	Completed            bool       `json:"completed"`
	WatchPositionSeconds int        `json:"watch_position_seconds"`
	CompletedAt          *time.Time `json:"completed_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type RecordProgress struct {
	LessonID      string `json:"lesson_id" validate:"required"`
	WatchPosition *int   `json:"watch_position" validate:"omitempty,gte=0"` // nil keeps the saved position
	Completed     bool   `json:"completed"`
}

func (rp *RecordProgress) Validate() error {
	rp.LessonID = core.CleanString(rp.LessonID)
	return core.Validate.Struct(rp)
}

type RecordResult struct {
	Progress   LessonProgress        `json:"progress"`
	Enrollment enrollment.Enrollment `json:"enrollment"`
}

type CourseProgress struct {
	CourseID         string                `json:"course_id"`
	Enrollment       enrollment.Enrollment `json:"enrollment"`
	CompletedLessons int                   `json:"completed_lessons"`
	TotalLessons     int                   `json:"total_lessons"`
	Lessons          []LessonProgress      `json:"lessons"`
}

type Streak struct {
	Current        int    `json:"current"`
	Longest        int    `json:"longest"`
	ActiveToday    bool   `json:"active_today"`
	LastActiveDate string `json:"last_active_date,omitempty"` // YYYY-MM-DD
}

// dateOf drops the time and location of t, keeping its calendar date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ComputeStreak derives the learning streak from activity days, as of today.
// The current run may end yesterday when today has no activity yet.
func ComputeStreak(days []time.Time, today time.Time) Streak {
	if len(days) == 0 {
		return Streak{}
	}
	seen := make(map[time.Time]bool, len(days))
	dates := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = dateOf(d)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var s Streak
	run := 0
	for i, d := range dates {
		if i > 0 && dates[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > s.Longest {
			s.Longest = run
		}
	}

	today = dateOf(today)
	s.ActiveToday = seen[today]
	s.LastActiveDate = dates[len(dates)-1].Format(dateLayout)

	end := today
	if !s.ActiveToday {
		end = today.AddDate(0, 0, -1)
	}
	for d := end; seen[d]; d = d.AddDate(0, 0, -1) {
		s.Current++
	}
	return s
}
