package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/payment"
)

const orderColumns = "id, user_id, course_id, amount, currency, status, provider_ref, created_at, updated_at, paid_at"

type orderRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	CourseID    string    `db:"course_id"`
	Amount      int64     `db:"amount"`
	Currency    string    `db:"currency"`
	Status      string    `db:"status"`
	ProviderRef string    `db:"provider_ref"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	PaidAt      null.Time `db:"paid_at"`
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) boil(o payment.Order) orderRow {
	return orderRow{
		ID:          o.ID,
		UserID:      o.UserID,
		CourseID:    o.CourseID,
		Amount:      o.Amount,
		Currency:    o.Currency,
		Status:      o.Status,
		ProviderRef: o.ProviderRef,
		CreatedAt:   o.CreatedAt.UTC(),
		UpdatedAt:   o.UpdatedAt.UTC(),
		PaidAt:      null.TimeFromPtr(o.PaidAt),
	}
}

func (repo paymentRepository) unboil(row orderRow) payment.Order {
	return payment.Order{
		ID:          row.ID,
		UserID:      row.UserID,
		CourseID:    row.CourseID,
		Amount:      row.Amount,
		Currency:    row.Currency,
		Status:      row.Status,
		ProviderRef: row.ProviderRef,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
		PaidAt:      utcPtr(row.PaidAt),
	}
}

func (repo paymentRepository) CreateOrder(ctx context.Context, o payment.Order) (payment.Order, error) {
	o.ID = uuid.New().String()
	q := `INSERT INTO orders (` + orderColumns + `)
		VALUES (:id, :user_id, :course_id, :amount, :currency, :status, :provider_ref, :created_at, :updated_at, :paid_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(o)); err != nil {
		return payment.Order{}, errors.Wrap(err, "inserting order")
	}
	return o, nil
}

func (repo paymentRepository) get(ctx context.Context, w where) (payment.Order, error) {
	var row orderRow
	q := repo.db.Rebind("SELECT " + orderColumns + " FROM orders" + w.String() + " ORDER BY created_at DESC LIMIT 1")
	if err := repo.db.GetContext(ctx, &row, q, w.args...); err != nil {
		return payment.Order{}, trapNoRowsErr(err, payment.ErrNotFound, "finding order")
	}
	return repo.unboil(row), nil
}

func (repo paymentRepository) GetOrder(ctx context.Context, filter payment.GetFilter) (payment.Order, error) {
	var w where
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return payment.Order{}, payment.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.ProviderRef != "":
		w.add("provider_ref = ?", filter.ProviderRef)
	default:
		return payment.Order{}, payment.ErrNotFound
	}
	return repo.get(ctx, w)
}

func (repo paymentRepository) FindPendingOrder(ctx context.Context, userID, courseID string) (payment.Order, error) {
	var w where
	w.add("user_id = ?", userID)
	w.add("course_id = ?", courseID)
	w.add("status = ?", payment.StatusPending)
	return repo.get(ctx, w)
}

func (repo paymentRepository) QueryOrders(ctx context.Context, filter payment.QueryFilter, page core.Pagination) ([]payment.Order, int, error) {
	var w where
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if !filter.CreatedBefore.IsZero() {
		w.add("created_at < ?", filter.CreatedBefore.UTC())
	}

	var rows []orderRow
	total, err := paginate(ctx, repo.db, &rows, orderColumns, "orders", w, " ORDER BY created_at DESC", page)
	if err != nil {
		return nil, 0, err
	}
	orders := make([]payment.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, repo.unboil(row))
	}
	return orders, total, nil
}

func (repo paymentRepository) UpdateOrder(ctx context.Context, o payment.Order) (payment.Order, error) {
	q := `UPDATE orders SET status = :status, updated_at = :updated_at, paid_at = :paid_at WHERE id = :id`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(o)); err != nil {
		return payment.Order{}, errors.Wrap(err, "updating order")
	}
	return o, nil
}

func (repo paymentRepository) HasPaidOrder(ctx context.Context, userID, courseID string) (bool, error) {
	var found bool
	q := repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM orders WHERE user_id = ? AND course_id = ? AND status = ?)")
	if err := repo.db.GetContext(ctx, &found, q, userID, courseID, payment.StatusPaid); err != nil {
		return false, errors.Wrap(err, "checking paid order")
	}
	return found, nil
}
