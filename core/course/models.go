package course

import (
	"strings"
	"time"

	"github.com/manabi/lms/core"
)

// Levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

var (
	AllLevels     = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}
	AllCurrencies = []string{"JPY", "USD", "EUR", "THB"}
)

type (
	Course struct {
		ID           string    `json:"id"`
		Title        string    `json:"title"`
		Description  string    `json:"description"`
		Category     string    `json:"category"`
		Level        string    `json:"level"`
		Price        int64     `json:"price"` // smallest currency unit
		Currency     string    `json:"currency"`
		IsPublished  bool      `json:"is_published"`
		InstructorID string    `json:"instructor_id"`
		ThumbnailURL string    `json:"thumbnail_url"`
		LessonCount  int       `json:"lesson_count"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	Chapter struct {
		ID        string    `json:"id"`
		CourseID  string    `json:"course_id"`
		Title     string    `json:"title"`
		Position  int       `json:"position"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Lesson struct {
		ID              string    `json:"id"`
		CourseID        string    `json:"course_id"`
		ChapterID       string    `json:"chapter_id"`
		Title           string    `json:"title"`
		Content         string    `json:"content"`
		VideoURL        string    `json:"video_url"`
		DurationSeconds int       `json:"duration_seconds"`
		Position        int       `json:"position"`
		IsPreview       bool      `json:"is_preview"`
		Locked          bool      `json:"locked"` // content withheld from the requester
		CreatedAt       time.Time `json:"created_at"`
		UpdatedAt       time.Time `json:"updated_at"`
	}

	LessonSummary struct {
		ID              string `json:"id"`
		Title           string `json:"title"`
		DurationSeconds int    `json:"duration_seconds"`
		Position        int    `json:"position"`
		IsPreview       bool   `json:"is_preview"`
	}

	OutlineChapter struct {
		Chapter
		Lessons []LessonSummary `json:"lessons"`
	}

	Outline struct {
		Course   Course           `json:"course"`
		Chapters []OutlineChapter `json:"chapters"`
	}
)

func (c Course) IsFree() bool {
	return c.Price == 0
}

// Lock withholds the lesson body.
func (l *Lesson) Lock() {
	l.Content = ""
	l.VideoURL = ""
	l.Locked = true
}

func (l Lesson) Summary() LessonSummary {
	return LessonSummary{
		ID:              l.ID,
		Title:           l.Title,
		DurationSeconds: l.DurationSeconds,
		Position:        l.Position,
		IsPreview:       l.IsPreview,
	}
}

type NewCourse struct {
	Title        string `json:"title" validate:"required,notblank,max=200"`
	Description  string `json:"description" validate:"max=5000"`
	Category     string `json:"category" validate:"max=50"`
	Level        string `json:"level" validate:"required,course_level"`
	Price        int64  `json:"price" validate:"gte=0"`
	Currency     string `json:"currency" validate:"omitempty,currency"`
	IsPublished  bool   `json:"is_published"`
	InstructorID string `json:"instructor_id"` // admins only
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,httpurl"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category, true /* lower */)
	nc.Level = core.CleanString(nc.Level, true /* lower */)
	nc.Currency = core.CleanString(nc.Currency)
	nc.InstructorID = core.CleanString(nc.InstructorID)
	nc.ThumbnailURL = core.CleanString(nc.ThumbnailURL)
	return core.Validate.Struct(nc)
}

// UpdateCourse holds the fields to change. Nil fields are left untouched.
type UpdateCourse struct {
	Title        *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	Category     *string `json:"category" validate:"omitempty,max=50"`
	Level        *string `json:"level" validate:"omitempty,course_level"`
	Price        *int64  `json:"price" validate:"omitempty,gte=0"`
	Currency     *string `json:"currency" validate:"omitempty,currency"`
	IsPublished  *bool   `json:"is_published"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,httpurl"`
}

func (uc *UpdateCourse) Validate() error {
	return core.Validate.Struct(uc)
}

func (uc UpdateCourse) apply(c *Course) {
	if uc.Title != nil {
		c.Title = core.CleanString(*uc.Title)
	}
	if uc.Description != nil {
		c.Description = core.CleanString(*uc.Description)
	}
	if uc.Category != nil {
		c.Category = core.CleanString(*uc.Category, true /* lower */)
	}
	if uc.Level != nil {
		c.Level = core.CleanString(*uc.Level, true /* lower */)
	}
	if uc.Price != nil {
		c.Price = *uc.Price
	}
	if uc.Currency != nil {
		c.Currency = core.CleanString(*uc.Currency)
	}
	if uc.IsPublished != nil {
		c.IsPublished = *uc.IsPublished
	}
	if uc.ThumbnailURL != nil {
		c.ThumbnailURL = core.CleanString(*uc.ThumbnailURL)
	}
}

type QueryFilter struct {
	Search       string
	Category     string
	Level        string
	InstructorID string
	IsPublished  *bool
	Free         *bool
	PriceMin     *int64
	PriceMax     *int64

	// VisibleTo restricts the listing to published courses plus the ones owned by this instructor.
	VisibleTo string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Level = core.CleanString(qf.Level, true /* lower */)
	qf.InstructorID = core.CleanString(qf.InstructorID)
}

// Match reports whether c satisfies every filter criterion.
func (qf QueryFilter) Match(c Course) bool {
	if qf.Search != "" && !contains(c.Title, qf.Search) && !contains(c.Description, qf.Search) {
		return false
	}
	if qf.Category != "" && c.Category != qf.Category {
		return false
	}
	if qf.Level != "" && c.Level != qf.Level {
		return false
	}
	if qf.InstructorID != "" && c.InstructorID != qf.InstructorID {
		return false
	}
	if qf.IsPublished != nil && c.IsPublished != *qf.IsPublished {
		return false
	}
	if qf.Free != nil && c.IsFree() != *qf.Free {
		return false
	}
	if qf.PriceMin != nil && c.Price < *qf.PriceMin {
		return false
	}
	if qf.PriceMax != nil && c.Price > *qf.PriceMax {
		return false
	}
	if qf.VisibleTo != "" && !c.IsPublished && c.InstructorID != qf.VisibleTo {
		return false
	}
	return true
}

type NewChapter struct {
	Title    string `json:"title" validate:"required,notblank,max=200"`
	Position int    `json:"position" validate:"gte=0"` // 0 appends
}

func (nc *NewChapter) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	return core.Validate.Struct(nc)
}

type UpdateChapter struct {
	Title    *string `json:"title" validate:"omitempty,notblank,max=200"`
	Position *int    `json:"position" validate:"omitempty,gte=1"`
}

func (uc *UpdateChapter) Validate() error {
	return core.Validate.Struct(uc)
}

type NewLesson struct {
	Title           string `json:"title" validate:"required,notblank,max=200"`
	Content         string `json:"content"`
	VideoURL        string `json:"video_url" validate:"omitempty,httpurl"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	Position        int    `json:"position" validate:"gte=0"` // 0 appends
	IsPreview       bool   `json:"is_preview"`
}

func (nl *NewLesson) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	return core.Validate.Struct(nl)
}

type UpdateLesson struct {
	Title           *string `json:"title" validate:"omitempty,notblank,max=200"`
	Content         *string `json:"content"`
	VideoURL        *string `json:"video_url" validate:"omitempty,httpurl"`
	DurationSeconds *int    `json:"duration_seconds" validate:"omitempty,gte=0"`
	Position        *int    `json:"position" validate:"omitempty,gte=1"`
	IsPreview       *bool   `json:"is_preview"`
}

func (ul *UpdateLesson) Validate() error {
	return core.Validate.Struct(ul)
}

func (ul UpdateLesson) apply(l *Lesson) {
	if ul.Title != nil {
		l.Title = core.CleanString(*ul.Title)
	}
	if ul.Content != nil {
		l.Content = *ul.Content
	}
	if ul.VideoURL != nil {
		l.VideoURL = core.CleanString(*ul.VideoURL)
	}
	if ul.DurationSeconds != nil {
		l.DurationSeconds = *ul.DurationSeconds
	}
	if ul.Position != nil {
		l.Position = *ul.Position
	}
	if ul.IsPreview != nil {
		l.IsPreview = *ul.IsPreview
	}
}

func outlineKey(courseID string) string {
	return "course:outline:" + courseID
}

// nextPosition returns the position following the highest of positions.
func nextPosition(positions []int) int {
	max := 0
	for _, p := range positions {
		if p > max {
			max = p
		}
	}
	return max + 1
}

func positionTaken(positions []int, pos int) bool {
	for _, p := range positions {
		if p == pos {
			return true
		}
	}
	return false
}


func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
