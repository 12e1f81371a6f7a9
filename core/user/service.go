package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("user not found")
	ErrEmailExists = core.NewFieldError("email", "a user with this email already exists")
	ErrDeactivated = core.NewPermissionError("account deactivated")

	errOwnRole       = "you cannot change your own role"
	errOwnStatus     = "you cannot deactivate yourself"
	errRoleTooHigh   = "not enough rights to set this role"
	errDeleteSelf    = "you cannot delete yourself"
	errAdminRequired = "admin role required"
	errLinkCode      = "invalid or expired link code"

	// Orderings allowed on user listings.
	Orderings       = []string{"name", "email", "role", "created_at", "last_login"}
	DefaultOrdering = core.DBOrdering{Field: "created_at"}
)

const (
	// LastLoginResolution is how stale LastLogin may get before a sign-in rewrites it.
	LastLoginResolution = 15 * time.Minute
	// LineLinkCodeTTL is how long a code sent to a LINE follower stays valid.
	LineLinkCodeTTL = 15 * time.Minute

	lineLinkKeyPrefix = "user:line-link:"
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]User, int, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// UnlinkLineUser clears the LINE user id of whichever user holds it.
		UnlinkLineUser(ctx context.Context, lineUserID string) error
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo  Repository
		cache core.Cache
	}
)

func NewService(repo Repository, cache core.Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Provision returns the user behind a verified identity, creating a STUDENT on first sign-in.
// A verified email may claim an account that was never bound to an identity.
func (svc *Service) Provision(ctx context.Context, ident core.Identity) (User, error) {
	now := core.NowFunc()
	email := core.CleanString(ident.Email, true /* lower */)
	name := core.CleanString(ident.Name)

	usr, err := svc.repo.GetUser(ctx, GetFilter{FirebaseUID: ident.UID})
	if errors.Cause(err) == ErrNotFound && email != "" && ident.EmailVerified {
		var unbound User
		unbound, err = svc.repo.GetUser(ctx, GetFilter{Email: email})
		switch {
		case err == nil && unbound.FirebaseUID != "":
			return User{}, ErrEmailExists
		case err == nil:
			usr = unbound
		}
	}
	switch {
	case err == nil:
	case errors.Cause(err) == ErrNotFound:
		if name == "" {
			name = email
		}
		return svc.repo.CreateUser(ctx, User{
			FirebaseUID: ident.UID,
			Name:        name,
			Email:       email,
			Role:        RoleStudent,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
			LastLogin:   &now,
		})
	default:
		return User{}, errors.Wrap(err, "getting user by identity")
	}

	if !usr.IsActive {
		return User{}, ErrDeactivated
	}

	changed := usr.FirebaseUID != ident.UID
	usr.FirebaseUID = ident.UID
	if name != "" && name != usr.Name {
		usr.Name = name
		changed = true
	}
	if email != "" && email != usr.Email && ident.EmailVerified {
		// an email held by another account is not taken over
		_, err := svc.repo.GetUser(ctx, GetFilter{Email: email})
		switch {
		case errors.Cause(err) == ErrNotFound:
			usr.Email = email
			changed = true
		case err != nil:
			return User{}, errors.Wrap(err, "getting user by email")
		}
	}
	if usr.LastLogin == nil || now.Sub(*usr.LastLogin) >= LastLoginResolution {
		usr.LastLogin = &now
		changed = true
	}
	if !changed {
		return usr, nil
	}
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]User, int, error) {
	filter.Clean()
	ordering = core.CleanOrderings(ordering, Orderings, DefaultOrdering)
	return svc.repo.QueryUsers(ctx, filter, page.Clean(), ordering...)
}

// Update applies uu to the user `id` on behalf of actor.
func (svc *Service) Update(ctx context.Context, actor User, id string, uu UpdateUser) (User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return User{}, core.NewPermissionError("")
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	if err = uu.Validate(usr); err != nil {
		return User{}, err
	}

	if uu.Role != "" && uu.Role != usr.Role {
		if !actor.IsAdmin() {
			return User{}, core.NewPermissionError(errAdminRequired)
		}
		if actor.ID == usr.ID {
			return User{}, core.NewFieldError("role", errOwnRole)
		}
		if RolePriority(uu.Role) > RolePriority(actor.Role) {
			return User{}, core.NewFieldError("role", errRoleTooHigh)
		}
		usr.Role = uu.Role
	}
	if uu.IsActive != nil && *uu.IsActive != usr.IsActive {
		if !actor.IsAdmin() {
			return User{}, core.NewPermissionError(errAdminRequired)
		}
		if actor.ID == usr.ID {
			return User{}, core.NewFieldError("is_active", errOwnStatus)
		}
		usr.IsActive = *uu.IsActive
	}

	usr.Name = uu.Name
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetRole changes a user's role without an acting user (admin CLI).
func (svc *Service) SetRole(ctx context.Context, email, role string) (User, error) {
	role = core.CleanString(role, false)
	if err := core.Validate.Var(role, "required,role"); err != nil {
		return User{}, core.NewFieldError("role", roleText)
	}
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// Deactivate marks a user inactive without an acting user (admin CLI).
func (svc *Service) Deactivate(ctx context.Context, email string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = false
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// IssueLineLinkCode returns a one-time code proving ownership of the LINE account lineUserID.
func (svc *Service) IssueLineLinkCode(ctx context.Context, lineUserID string) (string, error) {
	if lineUserID = core.CleanString(lineUserID); lineUserID == "" {
		return "", errors.New("empty LINE user id")
	}
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:LineLinkCodeLen])
	if err := svc.cache.Set(ctx, lineLinkKeyPrefix+code, []byte(lineUserID), LineLinkCodeTTL); err != nil {
		return "", errors.Wrap(err, "storing LINE link code")
	}
	return code, nil
}

// LinkLine links the LINE account that received ll.Code to the user `id`.
func (svc *Service) LinkLine(ctx context.Context, id string, ll LinkLine) (User, error) {
	if err := ll.Validate(); err != nil {
		return User{}, err
	}
	key := lineLinkKeyPrefix + ll.Code
	val, err := svc.cache.Get(ctx, key)
	switch {
	case errors.Cause(err) == core.ErrCacheMiss:
		return User{}, core.NewFieldError("code", errLinkCode)
	case err != nil:
		return User{}, errors.Wrap(err, "reading LINE link code")
	}
	if err = svc.cache.Delete(ctx, key); err != nil {
		return User{}, errors.Wrap(err, "consuming LINE link code")
	}
	lineUserID := string(val)

	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	if usr.LineUserID == lineUserID {
		return usr, nil
	}
	// a LINE account belongs to at most one user
	if err = svc.repo.UnlinkLineUser(ctx, lineUserID); err != nil {
		return User{}, errors.Wrap(err, "unlinking previous owner")
	}
	usr.LineUserID = lineUserID
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) UnlinkLine(ctx context.Context, lineUserID string) error {
	if lineUserID = core.CleanString(lineUserID); lineUserID == "" {
		return nil
	}
	return svc.repo.UnlinkLineUser(ctx, lineUserID)
}

// Delete removes users on behalf of an admin actor. The actor cannot delete themselves.
func (svc *Service) Delete(ctx context.Context, actor User, ids ...string) error {
	if !actor.IsAdmin() {
		return core.NewPermissionError(errAdminRequired)
	}
	for _, id := range ids {
		if id == actor.ID {
			return core.NewPermissionError(errDeleteSelf)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
