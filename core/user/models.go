package user

import (
	"strings"
	"time"

	"github.com/manabi/lms/core"
)

// Roles
const (
	RoleStudent    = "STUDENT"
	RoleInstructor = "INSTRUCTOR"
	RoleAdmin      = "ADMIN"
)

var (
	AllRoles = []string{RoleStudent, RoleInstructor, RoleAdmin}

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdmin: 21,

		// Instructors: 20 - 11
		RoleInstructor: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID          string     `json:"id"`
	FirebaseUID string     `json:"-"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	LineUserID  string     `json:"line_user_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
	LastLogin   *time.Time `json:"last_login"` // UTC
}

var _ core.Person = User{}

func (u User) PersonID() string    { return u.ID }
func (u User) PersonName() string  { return u.Name }
func (u User) PersonEmail() string { return u.Email }

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsInstructor reports whether u may author courses. Admins are instructors too.
func (u User) IsInstructor() bool {
	return RolePriority(u.Role) >= RolePriority(RoleInstructor)
}

func (u User) IsStudent() bool {
	return u.Role == RoleStudent
}

// CanManage reports whether u may manage content owned by ownerID.
func (u User) CanManage(ownerID string) bool {
	return u.IsAdmin() || (u.IsInstructor() && u.ID == ownerID)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name     string `json:"name"`
	Role     string `json:"role" validate:"omitempty,role"`
	IsActive *bool  `json:"is_active"`
}

func (uu *UpdateUser) Validate(origUsr User) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	uu.Role = core.CleanString(uu.Role)
	return core.Validate.Struct(uu)
}

// LineLinkCodeLen is the length of the code a LINE follower receives.
const LineLinkCodeLen = 8

// LinkLine is the payload linking a LINE account to a User.
// Code is the one-time code replied to the LINE account when it followed the bot.
type LinkLine struct {
	Code string `json:"code" validate:"required,len=8,alphanum"`
}

func (ll *LinkLine) Validate() error {
	ll.Code = strings.ToUpper(core.CleanString(ll.Code))
	return core.Validate.Struct(ll)
}

type QueryFilter struct {
	Search      string
	Roles       []string
	IsActive    *bool
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects one User. The first non-empty field wins.
type GetFilter struct {
	ID          string
	FirebaseUID string
	Email       string
	LineUserID  string
}
