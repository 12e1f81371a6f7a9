package assignment

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("assignment not found")
	ErrSubmissionNotFound = core.NewNotFoundError("submission not found")

	errPastDue         = "the due date has passed"
	errAlreadyGraded   = "submission already graded"
	errScoreTooHigh    = "score cannot exceed the maximum score"
	errLessonNotInCrse = "lesson does not belong to this course"
	errNoAccess        = "enrollment required"
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		QueryAssignments(ctx context.Context, courseID string, page core.Pagination) ([]Assignment, int, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error

		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, filter SubmissionGetFilter) (Submission, error)
		QuerySubmissions(ctx context.Context, filter SubmissionFilter, page core.Pagination) ([]Submission, int, error)
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
	}

	Courses interface {
		Find(ctx context.Context, id string) (course.Course, error)
		Manageable(ctx context.Context, actor user.User, id string) (course.Course, error)
		FindLesson(ctx context.Context, id string) (course.Lesson, error)
	}

	Enrollments interface {
		HasAccess(ctx context.Context, userID, courseID string) (bool, error)
		RequireActive(ctx context.Context, usr user.User, courseID string) (enrollment.Enrollment, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo        Repository
		courses     Courses
		enrollments Enrollments
		users       UserGetter
		notifier    core.Notifier
		mailSvc     core.EmailService
		logger      core.Logger
	}
)

func NewService(
	repo Repository,
	courses Courses,
	enrollments Enrollments,
	users UserGetter,
	notifier core.Notifier,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		users:       users,
		notifier:    notifier,
		mailSvc:     mailSvc,
		logger:      logger,
	}
}

// canRead reports whether actor manages courseID or holds an enrollment giving access to it.
func (svc *Service) canRead(ctx context.Context, actor user.User, courseID string) (manages bool, err error) {
	c, err := svc.courses.Find(ctx, courseID)
	if err != nil {
		return false, err
	}
	if actor.CanManage(c.InstructorID) {
		return true, nil
	}
	ok, err := svc.enrollments.HasAccess(ctx, actor.ID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	if !ok {
		return false, core.NewPermissionError(errNoAccess)
	}
	return false, nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, na NewAssignment) (Assignment, error) {
	if err := na.Validate(); err != nil {
		return Assignment{}, err
	}
	if _, err := svc.courses.Manageable(ctx, actor, na.CourseID); err != nil {
		return Assignment{}, err
	}
	if na.LessonID != "" {
		l, err := svc.courses.FindLesson(ctx, na.LessonID)
		if err != nil && !core.IsNotFound(err) {
			return Assignment{}, errors.Wrap(err, "getting lesson")
		}
		if err != nil || l.CourseID != na.CourseID {
			return Assignment{}, core.NewFieldError("lesson_id", errLessonNotInCrse)
		}
	}

	now := core.NowFunc()
	a := Assignment{
		CourseID:    na.CourseID,
		LessonID:    na.LessonID,
		Title:       na.Title,
		Description: na.Description,
		MaxScore:    na.MaxScore,
		AllowLate:   na.AllowLate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if na.DueAt != nil {
		due := na.DueAt.UTC()
		a.DueAt = &due
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if _, err = svc.canRead(ctx, actor, a.CourseID); err != nil {
		if core.IsNotFound(err) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

// List lists the assignments of a course readable by actor.
func (svc *Service) List(ctx context.Context, actor user.User, courseID string, page core.Pagination) ([]Assignment, int, error) {
	if courseID = core.CleanString(courseID); courseID == "" {
		return nil, 0, core.NewFieldError("course_id", "this field is required")
	}
	if _, err := svc.canRead(ctx, actor, courseID); err != nil {
		return nil, 0, err
	}
	return svc.repo.QueryAssignments(ctx, courseID, page.Clean())
}

func (svc *Service) manageable(ctx context.Context, actor user.User, id string) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if _, err = svc.courses.Manageable(ctx, actor, a.CourseID); err != nil {
		if core.IsNotFound(err) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, ua UpdateAssignment) (Assignment, error) {
	a, err := svc.manageable(ctx, actor, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = ua.Validate(); err != nil {
		return Assignment{}, err
	}
	ua.apply(&a)
	a.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateAssignment(ctx, a)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.manageable(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

// Submissions

// Submit creates or replaces the submission of actor. created is false on resubmission.
func (svc *Service) Submit(ctx context.Context, actor user.User, assignmentID string, ns NewSubmission) (s Submission, created bool, err error) {
	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Submission{}, false, err
	}
	if _, err = svc.enrollments.RequireActive(ctx, actor, a.CourseID); err != nil {
		return Submission{}, false, err
	}
	if err = ns.Validate(); err != nil {
		return Submission{}, false, err
	}

	now := core.NowFunc()
	late := a.IsLate(now)
	if late && !a.AllowLate {
		return Submission{}, false, core.NewFieldError("due_at", errPastDue)
	}

	s, err = svc.repo.GetSubmission(ctx, SubmissionGetFilter{AssignmentID: a.ID, UserID: actor.ID})
	switch {
	case errors.Cause(err) == ErrSubmissionNotFound:
		s, err = svc.repo.CreateSubmission(ctx, Submission{
			AssignmentID:  a.ID,
			CourseID:      a.CourseID,
			UserID:        actor.ID,
			Content:       ns.Content,
			AttachmentURL: ns.AttachmentURL,
			Status:        StatusSubmitted,
			IsLate:        late,
			SubmittedAt:   now,
		})
		if err != nil {
			return Submission{}, false, errors.Wrap(err, "creating submission")
		}
		return s, true, nil
	case err != nil:
		return Submission{}, false, errors.Wrap(err, "getting submission")
	}

	s, err = svc.resubmit(ctx, s, ns, late)
	return s, false, err
}

func (svc *Service) resubmit(ctx context.Context, s Submission, ns NewSubmission, late bool) (Submission, error) {
	if s.Status == StatusGraded {
		return Submission{}, core.NewFieldError("status", errAlreadyGraded)
	}
	s.Content = ns.Content
	s.AttachmentURL = ns.AttachmentURL
	s.Status = StatusSubmitted
	s.IsLate = late
	s.SubmittedAt = core.NowFunc()
	s.Score = nil
	s.GradedAt = nil
	s.GradedBy = ""
	return svc.repo.UpdateSubmission(ctx, s)
}

// GetSubmission returns a submission to its author or to the course staff.
func (svc *Service) GetSubmission(ctx context.Context, actor user.User, id string) (Submission, error) {
	s, err := svc.repo.GetSubmission(ctx, SubmissionGetFilter{ID: id})
	if err != nil {
		return Submission{}, err
	}
	if s.UserID == actor.ID {
		return s, nil
	}
	if _, err = svc.courses.Manageable(ctx, actor, s.CourseID); err != nil {
		return Submission{}, ErrSubmissionNotFound
	}
	return s, nil
}

// UpdateSubmission grades the submission when actor is course staff, or replaces its
// content when actor is its author.
func (svc *Service) UpdateSubmission(ctx context.Context, actor user.User, id string, us UpdateSubmission) (Submission, error) {
	s, err := svc.repo.GetSubmission(ctx, SubmissionGetFilter{ID: id})
	if err != nil {
		return Submission{}, err
	}
	if _, err = svc.courses.Manageable(ctx, actor, s.CourseID); err == nil {
		return svc.Grade(ctx, actor, id, GradeSubmission{Score: us.Score, Feedback: us.Feedback, Status: us.Status})
	}
	if s.UserID != actor.ID {
		return Submission{}, ErrSubmissionNotFound
	}

	a, err := svc.repo.GetAssignment(ctx, s.AssignmentID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "getting assignment")
	}
	if _, err = svc.enrollments.RequireActive(ctx, actor, a.CourseID); err != nil {
		return Submission{}, err
	}
	ns := NewSubmission{Content: us.Content, AttachmentURL: us.AttachmentURL}
	if err = ns.Validate(); err != nil {
		return Submission{}, err
	}
	late := a.IsLate(core.NowFunc())
	if late && !a.AllowLate {
		return Submission{}, core.NewFieldError("due_at", errPastDue)
	}
	return svc.resubmit(ctx, s, ns, late)
}

func (svc *Service) Grade(ctx context.Context, actor user.User, id string, gs GradeSubmission) (Submission, error) {
	s, err := svc.repo.GetSubmission(ctx, SubmissionGetFilter{ID: id})
	if err != nil {
		return Submission{}, err
	}
	if _, err = svc.courses.Manageable(ctx, actor, s.CourseID); err != nil {
		if core.IsNotFound(err) || s.UserID != actor.ID {
			return Submission{}, ErrSubmissionNotFound
		}
		return Submission{}, err
	}
	a, err := svc.repo.GetAssignment(ctx, s.AssignmentID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "getting assignment")
	}
	if err = gs.Validate(); err != nil {
		return Submission{}, err
	}
	if *gs.Score > a.MaxScore {
		return Submission{}, core.NewFieldError("score", errScoreTooHigh)
	}

	now := core.NowFunc()
	score := *gs.Score
	s.Score = &score
	s.Feedback = gs.Feedback
	s.Status = gs.Status
	s.GradedAt = &now
	s.GradedBy = actor.ID
	if s, err = svc.repo.UpdateSubmission(ctx, s); err != nil {
		return Submission{}, errors.Wrap(err, "updating submission")
	}

	svc.notifyGraded(ctx, a, s)
	return s, nil
}

func (svc *Service) ListForAssignment(ctx context.Context, actor user.User, assignmentID, status string, page core.Pagination) ([]Submission, int, error) {
	if _, err := svc.manageable(ctx, actor, assignmentID); err != nil {
		return nil, 0, err
	}
	filter := SubmissionFilter{AssignmentID: assignmentID, Status: core.CleanString(status, true /* lower */)}
	return svc.repo.QuerySubmissions(ctx, filter, page.Clean())
}

func (svc *Service) ListMine(ctx context.Context, actor user.User, status string, page core.Pagination) ([]Submission, int, error) {
	filter := SubmissionFilter{UserID: actor.ID, Status: core.CleanString(status, true /* lower */)}
	return svc.repo.QuerySubmissions(ctx, filter, page.Clean())
}

func (svc *Service) notifyGraded(ctx context.Context, a Assignment, s Submission) {
	usr, err := svc.users.GetByID(ctx, s.UserID)
	if err != nil {
		svc.logger.Error("getting user to notify", err, map[string]interface{}{"submission_id": s.ID})
		return
	}

	text := fmt.Sprintf("Your submission for \"%s\" was %s.", a.Title, s.Status)
	if s.Score != nil {
		text += fmt.Sprintf(" Score: %d/%d.", *s.Score, a.MaxScore)
	}
	if err = svc.notifier.Notify(ctx, usr.LineUserID, text); err != nil {
		svc.logger.Error("pushing LINE message", err, usr)
	}
	if usr.Email == "" {
		return
	}

	data := gradedMailData{
		Name:            usr.Name,
		AssignmentTitle: a.Title,
		Status:          s.Status,
		MaxScore:        a.MaxScore,
		Feedback:        s.Feedback,
		SubmissionID:    s.ID,
	}
	if s.Score != nil {
		data.Scored = true
		data.Score = *s.Score
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your submission for " + a.Title + " was " + s.Status,
		TemplateName: "submission_graded",
		TemplateData: data,
	})
}
