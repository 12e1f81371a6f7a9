package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/user"
)

const userColumns = "id, firebase_uid, name, email, role, line_user_id, is_active, created_at, updated_at, last_login"

type userRow struct {
	ID          string      `db:"id"`
	FirebaseUID null.String `db:"firebase_uid"`
	Name        string      `db:"name"`
	Email       null.String `db:"email"`
	Role        string      `db:"role"`
	LineUserID  null.String `db:"line_user_id"`
	IsActive    bool        `db:"is_active"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
	LastLogin   null.Time   `db:"last_login"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:          usr.ID,
		FirebaseUID: null.NewString(usr.FirebaseUID, usr.FirebaseUID != ""),
		Name:        usr.Name,
		Email:       null.NewString(usr.Email, usr.Email != ""),
		Role:        usr.Role,
		LineUserID:  null.NewString(usr.LineUserID, usr.LineUserID != ""),
		IsActive:    usr.IsActive,
		CreatedAt:   usr.CreatedAt.UTC(),
		UpdatedAt:   usr.UpdatedAt.UTC(),
		LastLogin:   null.TimeFromPtr(usr.LastLogin),
	}
}

func (repo userRepository) unboil(row userRow) user.User {
	return user.User{
		ID:          row.ID,
		FirebaseUID: row.FirebaseUID.String,
		Name:        row.Name,
		Email:       row.Email.String,
		Role:        row.Role,
		LineUserID:  row.LineUserID.String,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
		LastLogin:   utcPtr(row.LastLogin),
	}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :firebase_uid, :name, :email, :role, :line_user_id, :is_active, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(usr)); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.FirebaseUID != "":
		w.add("firebase_uid = ?", filter.FirebaseUID)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.LineUserID != "":
		w.add("line_user_id = ?", filter.LineUserID)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users" + w.String())
	if err := repo.db.GetContext(ctx, &row, q, w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]user.User, int, error) {
	var w where
	// users with Name or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		w.add("(name ILIKE ? OR email ILIKE ?)", val, val)
	}
	if len(filter.Roles) > 0 {
		query, args, err := sqlx.In("role IN (?)", filter.Roles)
		if err != nil {
			return nil, 0, errors.Wrap(err, "binding roles")
		}
		w.add(query, args...)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at <= ?", filter.CreatedTo.UTC())
	}

	var rows []userRow
	total, err := paginate(ctx, repo.db, &rows, userColumns, "users", w, orderBy(ordering), page)
	if err != nil {
		return nil, 0, err
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unboil(row))
	}
	return users, total, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET firebase_uid = :firebase_uid, name = :name, email = :email, role = :role,
		line_user_id = :line_user_id, is_active = :is_active, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boil(usr))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) UnlinkLineUser(ctx context.Context, lineUserID string) error {
	q := repo.db.Rebind("UPDATE users SET line_user_id = NULL, updated_at = ? WHERE line_user_id = ?")
	if _, err := repo.db.ExecContext(ctx, q, core.NowFunc(), lineUserID); err != nil {
		return errors.Wrap(err, "unlinking LINE user")
	}
	return nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "binding ids")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
