package enrollment

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("enrollment not found")
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrPaymentRequired = core.NewPermissionError("payment required")

	errAdminRequired = "admin role required"
)

type (
	Repository interface {
		// CreateEnrollment returns ErrAlreadyEnrolled when the (user, course) pair exists.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, filter GetFilter) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter QueryFilter, page core.Pagination) ([]Enrollment, int, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id string) error
	}

	// CourseFinder is the part of the course service enrollments rely on.
	CourseFinder interface {
		Find(ctx context.Context, id string) (course.Course, error)
		CountLessons(ctx context.Context, courseID string) (int, error)
	}

	// UserGetter finds the user to notify.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// ProgressCounter counts the lessons a user completed in a course.
	ProgressCounter interface {
		CountCompletedLessons(ctx context.Context, userID, courseID string) (int, error)
	}

	// PaymentChecker tells whether a user paid for a course.
	PaymentChecker interface {
		HasPaidOrder(ctx context.Context, userID, courseID string) (bool, error)
	}

	Service struct {
		repo     Repository
		courses  CourseFinder
		users    UserGetter
		progress ProgressCounter
		payments PaymentChecker
		notifier core.Notifier
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	courses CourseFinder,
	users UserGetter,
	progress ProgressCounter,
	payments PaymentChecker,
	notifier core.Notifier,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		users:    users,
		progress: progress,
		payments: payments,
		notifier: notifier,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// publishedCourse maps unpublished courses to course.ErrNotFound.
func (svc *Service) publishedCourse(ctx context.Context, id string) (course.Course, error) {
	c, err := svc.courses.Find(ctx, id)
	if err != nil {
		return course.Course{}, err
	}
	if !c.IsPublished {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (svc *Service) Enroll(ctx context.Context, usr user.User, ne NewEnrollment) (Enrollment, error) {
	if err := ne.Validate(); err != nil {
		return Enrollment{}, err
	}
	c, err := svc.publishedCourse(ctx, ne.CourseID)
	if err != nil {
		return Enrollment{}, err
	}

	if _, err = svc.repo.GetEnrollment(ctx, GetFilter{UserID: usr.ID, CourseID: c.ID}); err == nil {
		return Enrollment{}, core.NewFieldError("course_id", ErrAlreadyEnrolled.Error())
	} else if errors.Cause(err) != ErrNotFound {
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}

	if !c.IsFree() {
		paid, err := svc.payments.HasPaidOrder(ctx, usr.ID, c.ID)
		if err != nil {
			return Enrollment{}, errors.Wrap(err, "checking payment")
		}
		if !paid {
			return Enrollment{}, ErrPaymentRequired
		}
	}

	return svc.create(ctx, usr, c)
}

func (svc *Service) create(ctx context.Context, usr user.User, c course.Course) (Enrollment, error) {
	now := core.NowFunc()
	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:     usr.ID,
		CourseID:   c.ID,
		Status:     StatusActive,
		EnrolledAt: now,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewFieldError("course_id", ErrAlreadyEnrolled.Error())
		}
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}

	svc.notify(ctx, usr,
		fmt.Sprintf("You are now enrolled in \"%s\". Happy learning!", c.Title),
		"Welcome to "+c.Title, "enrollment_welcome",
		courseMailData{Name: usr.Name, CourseTitle: c.Title, CourseID: c.ID})
	return e, nil
}

// Grant enrolls a user who paid for a course. A suspended enrollment is reactivated.
// Existing active or completed enrollments are returned untouched.
func (svc *Service) Grant(ctx context.Context, userID, courseID string) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, GetFilter{UserID: userID, CourseID: courseID})
	switch {
	case err == nil:
		if e.Status != StatusSuspended {
			return e, nil
		}
		e.Status = StatusActive
		e.UpdatedAt = core.NowFunc()
		return svc.repo.UpdateEnrollment(ctx, e)
	case errors.Cause(err) != ErrNotFound:
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}

	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting enrollee")
	}
	c, err := svc.courses.Find(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}
	return svc.create(ctx, usr, c)
}

// Suspend suspends the enrollment of userID in courseID, if any.
func (svc *Service) Suspend(ctx context.Context, userID, courseID string) error {
	e, err := svc.repo.GetEnrollment(ctx, GetFilter{UserID: userID, CourseID: courseID})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return err
	}
	if e.Status == StatusSuspended {
		return nil
	}
	e.Status = StatusSuspended
	e.UpdatedAt = core.NowFunc()
	_, err = svc.repo.UpdateEnrollment(ctx, e)
	return err
}

// Get returns an enrollment visible to actor: their own, or one in a course they manage.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, GetFilter{ID: id})
	if err != nil {
		return Enrollment{}, err
	}
	if e.UserID == actor.ID || actor.IsAdmin() {
		return e, nil
	}
	if actor.IsInstructor() {
		c, err := svc.courses.Find(ctx, e.CourseID)
		if err != nil && errors.Cause(err) != course.ErrNotFound {
			return Enrollment{}, errors.Wrap(err, "getting course")
		}
		if err == nil && actor.CanManage(c.InstructorID) {
			return e, nil
		}
	}
	return Enrollment{}, ErrNotFound
}

// Find returns the enrollment of userID in courseID.
func (svc *Service) Find(ctx context.Context, userID, courseID string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, GetFilter{UserID: userID, CourseID: courseID})
}

// HasAccess reports whether userID holds an active or completed enrollment in courseID.
func (svc *Service) HasAccess(ctx context.Context, userID, courseID string) (bool, error) {
	e, err := svc.Find(ctx, userID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return e.HasAccess(), nil
}

// RequireActive returns the active enrollment of usr in courseID or a permission error.
func (svc *Service) RequireActive(ctx context.Context, usr user.User, courseID string) (Enrollment, error) {
	e, err := svc.Find(ctx, usr.ID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrollment{}, core.NewPermissionError("active enrollment required")
		}
		return Enrollment{}, err
	}
	if e.Status != StatusActive {
		return Enrollment{}, core.NewPermissionError("active enrollment required")
	}
	return e, nil
}

// LessonFor returns a lesson as seen by actor: non-preview content is withheld from
// users who neither manage the course nor hold an active or completed enrollment.
func (svc *Service) LessonFor(ctx context.Context, actor user.User, l course.Lesson, c course.Course) (course.Lesson, error) {
	if l.IsPreview || actor.CanManage(c.InstructorID) {
		return l, nil
	}
	ok, err := svc.HasAccess(ctx, actor.ID, c.ID)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "checking access")
	}
	if !ok {
		l.Lock()
	}
	return l, nil
}

func (svc *Service) ListMine(ctx context.Context, actor user.User, status string, page core.Pagination) ([]Enrollment, int, error) {
	filter := QueryFilter{UserID: actor.ID, Status: status}
	filter.Clean()
	return svc.repo.QueryEnrollments(ctx, filter, page.Clean())
}

// ListForCourse lists the enrollments of a course managed by actor.
func (svc *Service) ListForCourse(ctx context.Context, actor user.User, courseID, status string, page core.Pagination) ([]Enrollment, int, error) {
	c, err := svc.courses.Find(ctx, courseID)
	if err != nil {
		return nil, 0, err
	}
	if !actor.CanManage(c.InstructorID) {
		return nil, 0, core.NewPermissionError("")
	}
	filter := QueryFilter{CourseID: courseID, Status: status}
	filter.Clean()
	return svc.repo.QueryEnrollments(ctx, filter, page.Clean())
}

// Transition changes the status of an enrollment in a course managed by actor.
func (svc *Service) Transition(ctx context.Context, actor user.User, id string, cs ChangeStatus) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, GetFilter{ID: id})
	if err != nil {
		return Enrollment{}, err
	}
	c, err := svc.courses.Find(ctx, e.CourseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}
	if !actor.CanManage(c.InstructorID) {
		if e.UserID == actor.ID {
			return Enrollment{}, core.NewPermissionError("")
		}
		return Enrollment{}, ErrNotFound
	}
	if err = cs.Validate(); err != nil {
		return Enrollment{}, err
	}
	if !CanTransition(e.Status, cs.Status) {
		return Enrollment{}, core.NewFieldError("status", fmt.Sprintf("cannot change status from %s to %s", e.Status, cs.Status))
	}
	if e.Status == StatusCompleted && !actor.IsAdmin() {
		return Enrollment{}, core.NewPermissionError(errAdminRequired)
	}

	now := core.NowFunc()
	e.Status = cs.Status
	e.UpdatedAt = now
	if cs.Status == StatusCompleted {
		e.CompletedAt = &now
	}
	return svc.repo.UpdateEnrollment(ctx, e)
}

// Withdraw deletes an enrollment of actor (or any enrollment, for admins).
func (svc *Service) Withdraw(ctx context.Context, actor user.User, id string) error {
	e, err := svc.repo.GetEnrollment(ctx, GetFilter{ID: id})
	if err != nil {
		return err
	}
	if e.UserID != actor.ID && !actor.IsAdmin() {
		return ErrNotFound
	}
	return svc.repo.DeleteEnrollment(ctx, e.ID)
}

// Recalculate refreshes the progress of userID in courseID from the completed lessons.
// Suspended enrollments are left untouched. Reaching 100% completes an active enrollment.
func (svc *Service) Recalculate(ctx context.Context, userID, courseID string) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, GetFilter{UserID: userID, CourseID: courseID})
	if err != nil {
		return Enrollment{}, err
	}
	if e.Status == StatusSuspended {
		return e, nil
	}

	total, err := svc.courses.CountLessons(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "counting lessons")
	}
	done, err := svc.progress.CountCompletedLessons(ctx, userID, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "counting completed lessons")
	}

	pct := ProgressPercent(done, total)
	completing := pct == 100 && e.Status == StatusActive
	if pct == e.ProgressPercent && !completing {
		return e, nil
	}

	now := core.NowFunc()
	e.ProgressPercent = pct
	e.UpdatedAt = now
	if completing {
		e.Status = StatusCompleted
		e.CompletedAt = &now
	}
	if e, err = svc.repo.UpdateEnrollment(ctx, e); err != nil {
		return Enrollment{}, errors.Wrap(err, "updating enrollment")
	}

	if completing {
		svc.notifyCompletion(ctx, e)
	}
	return e, nil
}

func (svc *Service) notifyCompletion(ctx context.Context, e Enrollment) {
	usr, err := svc.users.GetByID(ctx, e.UserID)
	if err != nil {
		svc.logger.Error("getting user to notify", err, map[string]interface{}{"enrollment_id": e.ID})
		return
	}
	c, err := svc.courses.Find(ctx, e.CourseID)
	if err != nil {
		svc.logger.Error("getting course to notify", err, map[string]interface{}{"enrollment_id": e.ID})
		return
	}
	svc.notify(ctx, usr,
		fmt.Sprintf("Congratulations! You completed \"%s\".", c.Title),
		"You completed "+c.Title, "course_completed",
		courseMailData{Name: usr.Name, CourseTitle: c.Title, CourseID: c.ID})
}

// notify pushes text to the user's LINE account and sends them a templated email.
// Failures are logged, never returned.
func (svc *Service) notify(ctx context.Context, usr user.User, text, subject, tmpl string, data interface{}) {
	if err := svc.notifier.Notify(ctx, usr.LineUserID, text); err != nil {
		svc.logger.Error("pushing LINE message", err, usr)
	}
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}
