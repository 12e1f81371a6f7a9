package quiz

import (
	"fmt"
	"time"

	"github.com/manabi/lms/core"
)

const (
	defaultPoints         = 1
	defaultPassingPercent = 60
	answerSkipped         = -1
)

type (
	Question struct {
		ID           string   `json:"id"`
		Prompt       string   `json:"prompt"`
		Choices      []string `json:"choices"`
		CorrectIndex *int     `json:"correct_index,omitempty"` // hidden from students
		Points       int      `json:"points"`
	}

	Quiz struct {
		ID             string     `json:"id"`
		CourseID       string     `json:"course_id"`
		LessonID       string     `json:"lesson_id,omitempty"`
		Title          string     `json:"title"`
		PassingPercent int        `json:"passing_percent"`
		MaxAttempts    int        `json:"max_attempts"` // 0 = unlimited
		Questions      []Question `json:"questions"`
		CreatedAt      time.Time  `json:"created_at"`
		UpdatedAt      time.Time  `json:"updated_at"`
	}

	Attempt struct {
		ID          string    `json:"id"`
		QuizID      string    `json:"quiz_id"`
		UserID      string    `json:"user_id"`
		Answers     []int     `json:"answers"`
		Score       int       `json:"score"`
		MaxScore    int       `json:"max_score"`
		Percent     int       `json:"percent"`
		Passed      bool      `json:"passed"`
		SubmittedAt time.Time `json:"submitted_at"`
	}
)

// HideAnswers strips the correct answers.
func (q *Quiz) HideAnswers() {
	questions := make([]Question, len(q.Questions))
	for i, qn := range q.Questions {
		qn.CorrectIndex = nil
		questions[i] = qn
	}
	q.Questions = questions
}

func (q Quiz) MaxScore() int {
	total := 0
	for _, qn := range q.Questions {
		total += qn.Points
	}
	return total
}

// Grade scores answers against the quiz. answers[i] answers Questions[i]; -1 skips it.
func Grade(q Quiz, answers []int) (score, maxScore, percent int, passed bool) {
	for i, qn := range q.Questions {
		maxScore += qn.Points
		if i < len(answers) && qn.CorrectIndex != nil && answers[i] == *qn.CorrectIndex {
			score += qn.Points
		}
	}
	if maxScore > 0 {
		percent = score * 100 / maxScore
	}
	return score, maxScore, percent, percent >= q.PassingPercent
}

type NewQuestion struct {
	Prompt       string   `json:"prompt" validate:"required,notblank,max=2000"`
	Choices      []string `json:"choices" validate:"required,min=2,max=10,dive,notblank"`
	CorrectIndex *int     `json:"correct_index" validate:"required,gte=0"`
	Points       int      `json:"points" validate:"gte=0,lte=100"` // 0 defaults to 1
}

func cleanQuestions(questions []NewQuestion) error {
	for i := range questions {
		nq := &questions[i]
		nq.Prompt = core.CleanString(nq.Prompt)
		for j := range nq.Choices {
			nq.Choices[j] = core.CleanString(nq.Choices[j])
		}
		if nq.Points == 0 {
			nq.Points = defaultPoints
		}
		if nq.CorrectIndex != nil && *nq.CorrectIndex >= len(nq.Choices) {
			return core.NewFieldError("questions", fmt.Sprintf("question %d: correct_index out of range", i+1))
		}
	}
	return nil
}

type NewQuiz struct {
	CourseID       string        `json:"course_id" validate:"required"`
	LessonID       string        `json:"lesson_id"`
	Title          string        `json:"title" validate:"required,notblank,max=200"`
	PassingPercent *int          `json:"passing_percent" validate:"omitempty,gte=0,lte=100"` // defaults to 60
	MaxAttempts    int           `json:"max_attempts" validate:"gte=0"`
	Questions      []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

func (nq *NewQuiz) Validate() error {
	nq.CourseID = core.CleanString(nq.CourseID)
	nq.LessonID = core.CleanString(nq.LessonID)
	nq.Title = core.CleanString(nq.Title)
	if nq.PassingPercent == nil {
		pct := defaultPassingPercent
		nq.PassingPercent = &pct
	}
	if err := core.Validate.Struct(nq); err != nil {
		return err
	}
	return cleanQuestions(nq.Questions)
}

type UpdateQuiz struct {
	Title          *string       `json:"title" validate:"omitempty,notblank,max=200"`
	PassingPercent *int          `json:"passing_percent" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts    *int          `json:"max_attempts" validate:"omitempty,gte=0"`
	Questions      []NewQuestion `json:"questions" validate:"omitempty,min=1,dive"` // replaces all questions
}

func (uq *UpdateQuiz) Validate() error {
	if err := core.Validate.Struct(uq); err != nil {
		return err
	}
	return cleanQuestions(uq.Questions)
}

type SubmitAttempt struct {
	Answers []int `json:"answers" validate:"required"`
}

// Validate checks the answers against the quiz questions.
func (sa *SubmitAttempt) Validate(q Quiz) error {
	if err := core.Validate.Struct(sa); err != nil {
		return err
	}
	if len(sa.Answers) != len(q.Questions) {
		return core.NewFieldError("answers", fmt.Sprintf("expected %d answers", len(q.Questions)))
	}
	for i, a := range sa.Answers {
		if a < answerSkipped || a >= len(q.Questions[i].Choices) {
			return core.NewFieldError("answers", fmt.Sprintf("answer %d out of range", i+1))
		}
	}
	return nil
}
