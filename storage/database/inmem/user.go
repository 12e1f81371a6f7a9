package inmemdb

import (
	"context"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// uniqueTaken reports whether another user already holds one of the unique columns of usr.
func (repo userRepository) uniqueTaken(usr user.User) bool {
	for _, u := range repo.db.users {
		if u.ID == usr.ID {
			continue
		}
		if (usr.Email != "" && u.Email == usr.Email) ||
			(usr.FirebaseUID != "" && u.FirebaseUID == usr.FirebaseUID) ||
			(usr.LineUserID != "" && u.LineUserID == usr.LineUserID) {
			return true
		}
	}
	return false
}

func (repo userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = newID()
	if repo.uniqueTaken(usr) {
		return user.User{}, user.ErrEmailExists
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var match func(u user.User) bool
	switch {
	case filter.ID != "":
		usr, ok := repo.db.users[filter.ID]
		if !ok {
			return user.User{}, user.ErrNotFound
		}
		return usr, nil
	case filter.FirebaseUID != "":
		match = func(u user.User) bool { return u.FirebaseUID == filter.FirebaseUID }
	case filter.Email != "":
		match = func(u user.User) bool { return u.Email == filter.Email }
	case filter.LineUserID != "":
		match = func(u user.User) bool { return u.LineUserID == filter.LineUserID }
	default:
		return user.User{}, user.ErrNotFound
	}
	for _, u := range repo.db.users {
		if match(u) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func matchUser(filter user.QueryFilter, u user.User) bool {
	if filter.Search != "" && !contains(u.Name, filter.Search) && !contains(u.Email, filter.Search) {
		return false
	}
	if len(filter.Roles) > 0 {
		found := false
		for _, r := range filter.Roles {
			if u.Role == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && u.IsActive != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]user.User, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0)
	for _, u := range repo.db.users {
		if matchUser(filter, u) {
			users = append(users, u)
		}
	}
	sortByOrderings(users, ordering, func(i, j int, field string) int {
		a, b := users[i], users[j]
		switch field {
		case "name":
			return compareStrings(a.Name, b.Name)
		case "email":
			return compareStrings(a.Email, b.Email)
		case "role":
			return compareInts(int64(user.RolePriority(a.Role)), int64(user.RolePriority(b.Role)))
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		case "last_login":
			var ta, tb = zeroIfNil(a.LastLogin), zeroIfNil(b.LastLogin)
			return compareTimes(ta, tb)
		}
		return 0
	})

	start, end := core.Paginate(len(users), page)
	return users[start:end], len(users), nil
}

func (repo userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.uniqueTaken(usr) {
		return user.User{}, user.ErrEmailExists
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo userRepository) UnlinkLineUser(_ context.Context, lineUserID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, u := range repo.db.users {
		if u.LineUserID == lineUserID {
			u.LineUserID = ""
			u.UpdatedAt = core.NowFunc()
			repo.db.users[id] = u
		}
	}
	return nil
}

func (repo userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		repo.db.deleteUserLocked(id)
	}
	return nil
}
