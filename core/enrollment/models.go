package enrollment

import (
	"time"

	"github.com/manabi/lms/core"
)

// Statuses
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusSuspended = "suspended"
)

var (
	AllStatuses = []string{StatusActive, StatusCompleted, StatusSuspended}

	// allowed status changes: {from: [to...]}
	transitions = map[string][]string{
		StatusActive:    {StatusCompleted, StatusSuspended},
		StatusSuspended: {StatusActive},
		StatusCompleted: {StatusSuspended},
	}
)

// CanTransition reports whether an enrollment may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ProgressPercent is the floored share of completed lessons, clamped to [0, 100].
func ProgressPercent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return completed * 100 / total
}

type Enrollment struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	CourseID        string     `json:"course_id"`
	Status          string     `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	EnrolledAt      time.Time  `json:"enrolled_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasAccess reports whether the enrollee may read course content.
func (e Enrollment) HasAccess() bool {
	return e.Status == StatusActive || e.Status == StatusCompleted
}

type NewEnrollment struct {
	CourseID string `json:"course_id" validate:"required"`
}

func (ne *NewEnrollment) Validate() error {
	ne.CourseID = core.CleanString(ne.CourseID)
	return core.Validate.Struct(ne)
}

type ChangeStatus struct {
	Status string `json:"status" validate:"required,enrollment_status"`
}

func (cs *ChangeStatus) Validate() error {
	cs.Status = core.CleanString(cs.Status, true /* lower */)
	return core.Validate.Struct(cs)
}

// GetFilter selects one Enrollment, by ID or by (UserID, CourseID).
type GetFilter struct {
	ID       string
	UserID   string
	CourseID string
}

type QueryFilter struct {
	UserID   string
	CourseID string
	Status   string
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

func (qf QueryFilter) Match(e Enrollment) bool {
	return (qf.UserID == "" || e.UserID == qf.UserID) &&
		(qf.CourseID == "" || e.CourseID == qf.CourseID) &&
		(qf.Status == "" || e.Status == qf.Status)
}

// email template data
type courseMailData struct {
	Name        string
	CourseTitle string
	CourseID    string
}
