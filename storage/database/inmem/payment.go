package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

// latest returns the most recent order matching match.
func (repo paymentRepository) latest(match func(o payment.Order) bool) (payment.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var (
		found payment.Order
		ok    bool
	)
	for _, o := range repo.db.orders {
		if match(o) && (!ok || o.CreatedAt.After(found.CreatedAt)) {
			found, ok = o, true
		}
	}
	if !ok {
		return payment.Order{}, payment.ErrNotFound
	}
	return found, nil
}

func (repo paymentRepository) CreateOrder(_ context.Context, o payment.Order) (payment.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.orders {
		if other.ProviderRef == o.ProviderRef {
			return payment.Order{}, errors.New("duplicate provider reference")
		}
	}
	o.ID = newID()
	repo.db.orders[o.ID] = o
	return o, nil
}

func (repo paymentRepository) GetOrder(_ context.Context, filter payment.GetFilter) (payment.Order, error) {
	switch {
	case filter.ID != "":
		return repo.latest(func(o payment.Order) bool { return o.ID == filter.ID })
	case filter.ProviderRef != "":
		return repo.latest(func(o payment.Order) bool { return o.ProviderRef == filter.ProviderRef })
	}
	return payment.Order{}, payment.ErrNotFound
}

func (repo paymentRepository) FindPendingOrder(_ context.Context, userID, courseID string) (payment.Order, error) {
	return repo.latest(func(o payment.Order) bool {
		return o.UserID == userID && o.CourseID == courseID && o.Status == payment.StatusPending
	})
}

func (repo paymentRepository) QueryOrders(_ context.Context, filter payment.QueryFilter, page core.Pagination) ([]payment.Order, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orders := make([]payment.Order, 0)
	for _, o := range repo.db.orders {
		if filter.Match(o) {
			orders = append(orders, o)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })

	start, end := core.Paginate(len(orders), page)
	return orders[start:end], len(orders), nil
}

func (repo paymentRepository) UpdateOrder(_ context.Context, o payment.Order) (payment.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.orders[o.ID]; !ok {
		return payment.Order{}, payment.ErrNotFound
	}
	repo.db.orders[o.ID] = o
	return o, nil
}

func (repo paymentRepository) HasPaidOrder(_ context.Context, userID, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, o := range repo.db.orders {
		if o.UserID == userID && o.CourseID == courseID && o.Status == payment.StatusPaid {
			return true, nil
		}
	}
	return false, nil
}
