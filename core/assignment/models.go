package assignment

import (
	"time"

	"github.com/manabi/lms/core"
)

const defaultMaxScore = 100

// Submission statuses
const (
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
	StatusReturned  = "returned"
)

type Assignment struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	LessonID    string     `json:"lesson_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
	MaxScore    int        `json:"max_score"`
	AllowLate   bool       `json:"allow_late"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsLate reports whether a submission at t is past the due date.
func (a Assignment) IsLate(t time.Time) bool {
	return a.DueAt != nil && t.After(*a.DueAt)
}

type Submission struct {
	ID            string     `json:"id"`
	AssignmentID  string     `json:"assignment_id"`
	CourseID      string     `json:"course_id"`
	UserID        string     `json:"user_id"`
	Content       string     `json:"content"`
	AttachmentURL string     `json:"attachment_url"`
	Status        string     `json:"status"`
	Score         *int       `json:"score"`
	Feedback      string     `json:"feedback"`
	IsLate        bool       `json:"is_late"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	GradedAt      *time.Time `json:"graded_at"`
	GradedBy      string     `json:"graded_by,omitempty"`
}

type NewAssignment struct {
	CourseID    string     `json:"course_id" validate:"required"`
	LessonID    string     `json:"lesson_id"`
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=10000"`
	DueAt       *time.Time `json:"due_at"`
	MaxScore    int        `json:"max_score" validate:"gte=0,lte=1000"` // 0 defaults to 100
	AllowLate   bool       `json:"allow_late"`
}

func (na *NewAssignment) Validate() error {
	na.CourseID = core.CleanString(na.CourseID)
	na.LessonID = core.CleanString(na.LessonID)
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	if na.MaxScore == 0 {
		na.MaxScore = defaultMaxScore
	}
	return core.Validate.Struct(na)
}

type UpdateAssignment struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	DueAt       *time.Time `json:"due_at"`
	ClearDueAt  bool       `json:"clear_due_at"`
	MaxScore    *int       `json:"max_score" validate:"omitempty,gte=1,lte=1000"`
	AllowLate   *bool      `json:"allow_late"`
}

func (ua *UpdateAssignment) Validate() error {
	return core.Validate.Struct(ua)
}

func (ua UpdateAssignment) apply(a *Assignment) {
	if ua.Title != nil {
		a.Title = core.CleanString(*ua.Title)
	}
	if ua.Description != nil {
		a.Description = core.CleanString(*ua.Description)
	}
	if ua.ClearDueAt {
		a.DueAt = nil
	} else if ua.DueAt != nil {
		due := ua.DueAt.UTC()
		a.DueAt = &due
	}
	if ua.MaxScore != nil {
		a.MaxScore = *ua.MaxScore
	}
	if ua.AllowLate != nil {
		a.AllowLate = *ua.AllowLate
	}
}

type NewSubmission struct {
	Content       string `json:"content" validate:"max=50000"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,httpurl"`
}

func (ns *NewSubmission) Validate() error {
	ns.Content = core.CleanString(ns.Content)
	ns.AttachmentURL = core.CleanString(ns.AttachmentURL)
	if ns.Content == "" && ns.AttachmentURL == "" {
		return core.NewFieldError("content", "this field is required")
	}
	return core.Validate.Struct(ns)
}

type GradeSubmission struct {
	Score    *int   `json:"score" validate:"required,gte=0"`
	Feedback string `json:"feedback" validate:"max=10000"`
	Status   string `json:"status" validate:"required,oneof=graded returned"`
}

func (gs *GradeSubmission) Validate() error {
	gs.Feedback = core.CleanString(gs.Feedback)
	gs.Status = core.CleanString(gs.Status, true /* lower */)
	return core.Validate.Struct(gs)
}

// UpdateSubmission is the payload of a submission update: a grade from course staff,
// new content from the student.
type UpdateSubmission struct {
	Content       string `json:"content"`
	AttachmentURL string `json:"attachment_url"`
	Score         *int   `json:"score"`
	Feedback      string `json:"feedback"`
	Status        string `json:"status"`
}

type SubmissionGetFilter struct {
	ID           string
	AssignmentID string
	UserID       string
}

type SubmissionFilter struct {
	AssignmentID string
	UserID       string
	Status       string
}

func (sf SubmissionFilter) Match(s Submission) bool {
	return (sf.AssignmentID == "" || s.AssignmentID == sf.AssignmentID) &&
		(sf.UserID == "" || s.UserID == sf.UserID) &&
		(sf.Status == "" || s.Status == sf.Status)
}

// email template data
type gradedMailData struct {
	Name            string
	AssignmentTitle string
	Status          string
	Scored          bool
	Score           int
	MaxScore        int
	Feedback        string
	SubmissionID    string
}
