package payment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("order not found")
	ErrInvalidSignature = errors.New("invalid signature")

	errFreeCourse       = "this course is free"
	errAlreadyEnrolled  = "already enrolled"
	errNotRefundable    = "only paid orders can be refunded"
	errUnsupportedEvent = "unsupported event type"
	errAdminRequired    = "admin role required"
)

type (
	Repository interface {
		CreateOrder(ctx context.Context, o Order) (Order, error)
		GetOrder(ctx context.Context, filter GetFilter) (Order, error)
		// FindPendingOrder returns the pending order of userID for courseID, or ErrNotFound.
		FindPendingOrder(ctx context.Context, userID, courseID string) (Order, error)
		QueryOrders(ctx context.Context, filter QueryFilter, page core.Pagination) ([]Order, int, error)
		UpdateOrder(ctx context.Context, o Order) (Order, error)
		HasPaidOrder(ctx context.Context, userID, courseID string) (bool, error)
	}

	CourseFinder interface {
		Find(ctx context.Context, id string) (course.Course, error)
	}

	Enrollments interface {
		HasAccess(ctx context.Context, userID, courseID string) (bool, error)
		Grant(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error)
		Suspend(ctx context.Context, userID, courseID string) error
	}

	Service struct {
		repo          Repository
		courses       CourseFinder
		enrollments   Enrollments
		logger        core.Logger
		webhookSecret string
		pendingTTL    time.Duration
	}
)

func NewService(repo Repository, courses CourseFinder, enrollments Enrollments, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:          repo,
		courses:       courses,
		enrollments:   enrollments,
		logger:        logger,
		webhookSecret: conf.Payment.WebhookSecret,
		pendingTTL:    conf.Payment.PendingTTL,
	}
}

// Checkout opens a pending order for a paid course, reusing the pending one if any.
// created is false when an existing order is returned.
func (svc *Service) Checkout(ctx context.Context, actor user.User, co Checkout) (o Order, created bool, err error) {
	if err = co.Validate(); err != nil {
		return Order{}, false, err
	}
	c, err := svc.courses.Find(ctx, co.CourseID)
	if err != nil {
		return Order{}, false, err
	}
	if !c.IsPublished {
		return Order{}, false, course.ErrNotFound
	}
	if c.IsFree() {
		return Order{}, false, core.NewFieldError("course_id", errFreeCourse)
	}
	enrolled, err := svc.enrollments.HasAccess(ctx, actor.ID, c.ID)
	if err != nil {
		return Order{}, false, errors.Wrap(err, "checking enrollment")
	}
	if enrolled {
		return Order{}, false, core.NewFieldError("course_id", errAlreadyEnrolled)
	}

	o, err = svc.repo.FindPendingOrder(ctx, actor.ID, c.ID)
	if err == nil {
		return o, false, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Order{}, false, errors.Wrap(err, "finding pending order")
	}

	now := core.NowFunc()
	o, err = svc.repo.CreateOrder(ctx, Order{
		UserID:      actor.ID,
		CourseID:    c.ID,
		Amount:      c.Price,
		Currency:    c.Currency,
		Status:      StatusPending,
		ProviderRef: "pi_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Order{}, false, errors.Wrap(err, "creating order")
	}
	return o, true, nil
}

// HandleWebhook applies a signed provider event. Repeated deliveries are no-ops.
func (svc *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (Order, error) {
	if !VerifySignature(svc.webhookSecret, payload, signature) {
		return Order{}, ErrInvalidSignature
	}

	var evt WebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Order{}, core.NewValidationError(errors.New("malformed event payload"))
	}
	if err := core.Validate.Struct(evt); err != nil {
		return Order{}, err
	}

	filter := GetFilter{ID: evt.Data.OrderID}
	if filter.ID == "" {
		filter.ProviderRef = evt.Data.ProviderRef
	}
	if filter.ID == "" && filter.ProviderRef == "" {
		return Order{}, ErrNotFound
	}
	o, err := svc.repo.GetOrder(ctx, filter)
	if err != nil {
		return Order{}, err
	}

	switch evt.Type {
	case EventSucceeded:
		return svc.markPaid(ctx, o)
	case EventFailed:
		if o.Status != StatusPending {
			return o, nil
		}
		o.Status = StatusFailed
		o.UpdatedAt = core.NowFunc()
		return svc.repo.UpdateOrder(ctx, o)
	default:
		return Order{}, core.NewFieldError("type", errUnsupportedEvent)
	}
}

func (svc *Service) markPaid(ctx context.Context, o Order) (Order, error) {
	if o.Status == StatusPaid || o.Status == StatusRefunded {
		return o, nil
	}
	// enroll first: a failed grant leaves the order pending for the redelivery
	if _, err := svc.enrollments.Grant(ctx, o.UserID, o.CourseID); err != nil {
		return Order{}, errors.Wrap(err, "enrolling buyer")
	}
	now := core.NowFunc()
	o.Status = StatusPaid
	o.PaidAt = &now
	o.UpdatedAt = now
	o, err := svc.repo.UpdateOrder(ctx, o)
	if err != nil {
		return Order{}, errors.Wrap(err, "updating order")
	}
	return o, nil
}

// Refund refunds a paid order and suspends the matching enrollment. Admins only.
func (svc *Service) Refund(ctx context.Context, actor user.User, id string) (Order, error) {
	if !actor.IsAdmin() {
		return Order{}, core.NewPermissionError(errAdminRequired)
	}
	o, err := svc.repo.GetOrder(ctx, GetFilter{ID: id})
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusPaid {
		return Order{}, core.NewFieldError("status", errNotRefundable)
	}
	o.Status = StatusRefunded
	o.UpdatedAt = core.NowFunc()
	if o, err = svc.repo.UpdateOrder(ctx, o); err != nil {
		return Order{}, errors.Wrap(err, "updating order")
	}
	if err = svc.enrollments.Suspend(ctx, o.UserID, o.CourseID); err != nil {
		return Order{}, errors.Wrap(err, "suspending enrollment")
	}
	return o, nil
}

// Get returns an order to its buyer or to an admin.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Order, error) {
	o, err := svc.repo.GetOrder(ctx, GetFilter{ID: id})
	if err != nil {
		return Order{}, err
	}
	if o.UserID != actor.ID && !actor.IsAdmin() {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (svc *Service) ListMine(ctx context.Context, actor user.User, status string, page core.Pagination) ([]Order, int, error) {
	filter := QueryFilter{UserID: actor.ID, Status: core.CleanString(status, true /* lower */)}
	return svc.repo.QueryOrders(ctx, filter, page.Clean())
}

// ExpirePending fails the pending orders older than the configured TTL.
func (svc *Service) ExpirePending(ctx context.Context) (int, error) {
	cutoff := core.NowFunc().Add(-svc.pendingTTL)
	filter := QueryFilter{Status: StatusPending, CreatedBefore: cutoff}
	expired := 0
	for {
		orders, _, err := svc.repo.QueryOrders(ctx, filter, core.Pagination{Page: 1, PageSize: core.MaxPageSize})
		if err != nil {
			return expired, errors.Wrap(err, "querying pending orders")
		}
		if len(orders) == 0 {
			return expired, nil
		}
		for _, o := range orders {
			o.Status = StatusFailed
			o.UpdatedAt = core.NowFunc()
			if _, err = svc.repo.UpdateOrder(ctx, o); err != nil {
				return expired, errors.Wrap(err, "expiring order")
			}
			expired++
		}
	}
}
