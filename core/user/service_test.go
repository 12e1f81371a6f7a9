package user_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/user"
	"github.com/manabi/lms/tests"
)

func setClock(t *testing.T, now time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}

func TestService_Provision(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	t.Run("first sign-in creates a student", func(t *testing.T) {
		usr, err := app.UserSvc.Provision(ctx, core.Identity{UID: "fb-1", Email: " Hana@Test.jp ", EmailVerified: true, Name: "Hana"})
		require.NoError(t, err)
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "hana@test.jp", usr.Email)
		assert.Equal(t, user.RoleStudent, usr.Role)
		assert.True(t, usr.IsActive)
		assert.NotNil(t, usr.LastLogin)
	})

	t.Run("next sign-in returns the same user", func(t *testing.T) {
		first, err := app.UserSvc.GetByEmail(ctx, "hana@test.jp")
		require.NoError(t, err)
		usr, err := app.UserSvc.Provision(ctx, core.Identity{UID: "fb-1", Email: "hana@test.jp", EmailVerified: true, Name: "Hana Sato"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, usr.ID)
		assert.Equal(t, "Hana Sato", usr.Name)
	})

	t.Run("another identity cannot claim a bound email", func(t *testing.T) {
		first, err := app.UserSvc.GetByEmail(ctx, "hana@test.jp")
		require.NoError(t, err)

		_, err = app.UserSvc.Provision(ctx, core.Identity{UID: "fb-2", Email: "hana@test.jp", EmailVerified: true, Name: "Mallory"})
		assert.Equal(t, user.ErrEmailExists, err)
		assert.True(t, isValidationError(err))

		_, err = app.UserSvc.Provision(ctx, core.Identity{UID: "fb-2", Email: "hana@test.jp", Name: "Mallory"})
		assert.Equal(t, user.ErrEmailExists, err)

		got, err := app.UserSvc.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "fb-1", got.FirebaseUID)
		assert.Equal(t, "Hana Sato", got.Name)
	})

	t.Run("verified email claims an unbound account", func(t *testing.T) {
		now := core.NowFunc()
		seeded, err := app.UserRepo.CreateUser(ctx, user.User{
			Name: "Kenji", Email: "kenji@test.jp", Role: user.RoleInstructor, IsActive: true, CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)

		_, err = app.UserSvc.Provision(ctx, core.Identity{UID: "fb-kenji", Email: "kenji@test.jp"})
		assert.Equal(t, user.ErrEmailExists, err, "unverified emails never claim accounts")

		usr, err := app.UserSvc.Provision(ctx, core.Identity{UID: "fb-kenji", Email: "kenji@test.jp", EmailVerified: true})
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, usr.ID)
		assert.Equal(t, "fb-kenji", usr.FirebaseUID)
		assert.Equal(t, user.RoleInstructor, usr.Role)
	})

	t.Run("email change to a taken email keeps the old one", func(t *testing.T) {
		usr, err := app.UserSvc.Provision(ctx, core.Identity{UID: "fb-1", Email: "kenji@test.jp", EmailVerified: true})
		require.NoError(t, err)
		assert.Equal(t, "hana@test.jp", usr.Email)

		usr, err = app.UserSvc.Provision(ctx, core.Identity{UID: "fb-1", Email: "hana.sato@test.jp"})
		require.NoError(t, err)
		assert.Equal(t, "hana@test.jp", usr.Email, "unverified emails are not copied")

		usr, err = app.UserSvc.Provision(ctx, core.Identity{UID: "fb-1", Email: "hana.sato@test.jp", EmailVerified: true})
		require.NoError(t, err)
		assert.Equal(t, "hana.sato@test.jp", usr.Email)
	})

	t.Run("no name falls back to email", func(t *testing.T) {
		usr, err := app.UserSvc.Provision(ctx, core.Identity{UID: "fb-3", Email: "anon@test.jp"})
		require.NoError(t, err)
		assert.Equal(t, "anon@test.jp", usr.Name)
	})

	t.Run("deactivated", func(t *testing.T) {
		testutil.CreateUser(t, app.UserRepo, "Gone", "gone@test.jp", user.RoleStudent, false)
		_, err := app.UserSvc.Provision(ctx, core.Identity{UID: "uid-gone@test.jp", Email: "gone@test.jp"})
		assert.Equal(t, user.ErrDeactivated, err)
		assert.True(t, core.IsPermissionError(err))
	})
}

func TestService_Provision_lastLogin(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	ident := core.Identity{UID: "fb-ll", Email: "ll@test.jp", EmailVerified: true, Name: "Lu"}

	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	setClock(t, t0)
	first, err := app.UserSvc.Provision(ctx, ident)
	require.NoError(t, err)

	setClock(t, t0.Add(time.Minute))
	usr, err := app.UserSvc.Provision(ctx, ident)
	require.NoError(t, err)
	require.NotNil(t, usr.LastLogin)
	assert.Equal(t, t0, *usr.LastLogin)
	assert.Equal(t, first.UpdatedAt, usr.UpdatedAt, "no write within the resolution")

	later := t0.Add(user.LastLoginResolution)
	setClock(t, later)
	usr, err = app.UserSvc.Provision(ctx, ident)
	require.NoError(t, err)
	assert.Equal(t, later, *usr.LastLogin)

	stored, err := app.UserSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, later, *stored.LastLogin)
}

func TestService_Update(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin@test.jp", user.RoleAdmin, true)
	instr := testutil.CreateUser(t, app.UserRepo, "Instr", "instr@test.jp", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.UserRepo, "Student", "student@test.jp", user.RoleStudent, true)
	other := testutil.CreateUser(t, app.UserRepo, "Other", "other@test.jp", user.RoleStudent, true)
	falsy := false

	tests := []struct {
		name      string
		actor     user.User
		id        string
		uu        user.UpdateUser
		wantErr   func(error) bool
		wantRole  string
		wantName  string
		wantState *bool
	}{
		{name: "self rename", actor: student, id: student.ID, uu: user.UpdateUser{Name: "  Stu  "}, wantName: "Stu", wantRole: user.RoleStudent},
		{name: "blank name keeps the old one", actor: student, id: student.ID, uu: user.UpdateUser{Name: "  "}, wantName: "Stu", wantRole: user.RoleStudent},
		{name: "other user", actor: student, id: other.ID, uu: user.UpdateUser{Name: "x"}, wantErr: core.IsPermissionError},
		{name: "student sets own role", actor: student, id: student.ID, uu: user.UpdateUser{Role: user.RoleAdmin}, wantErr: core.IsPermissionError},
		{name: "admin changes own role", actor: admin, id: admin.ID, uu: user.UpdateUser{Role: user.RoleStudent}, wantErr: isValidationError},
		{name: "admin deactivates self", actor: admin, id: admin.ID, uu: user.UpdateUser{IsActive: &falsy}, wantErr: isValidationError},
		{name: "invalid role", actor: admin, id: other.ID, uu: user.UpdateUser{Role: "KING"}, wantErr: isValidatorError},
		{name: "admin promotes", actor: admin, id: instr.ID, uu: user.UpdateUser{Role: user.RoleAdmin}, wantName: "Instr", wantRole: user.RoleAdmin},
		{name: "admin deactivates", actor: admin, id: other.ID, uu: user.UpdateUser{IsActive: &falsy}, wantName: "Other", wantRole: user.RoleStudent, wantState: &falsy},
		{name: "not found", actor: admin, id: "lol", uu: user.UpdateUser{Name: "x"}, wantErr: core.IsNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			usr, err := app.UserSvc.Update(ctx, tt.actor, tt.id, tt.uu)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, usr.Name)
			assert.Equal(t, tt.wantRole, usr.Role)
			if tt.wantState != nil {
				assert.Equal(t, *tt.wantState, usr.IsActive)
			}
		})
	}
}

func TestService_LinkLine(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	lineID := "U" + "0123456789abcdef0123456789abcdef"
	usr1 := testutil.CreateUser(t, app.UserRepo, "One", "one@test.jp", "", true)
	usr2 := testutil.CreateUser(t, app.UserRepo, "Two", "two@test.jp", "", true)

	_, err := app.UserSvc.IssueLineLinkCode(ctx, " ")
	assert.Error(t, err)

	_, err = app.UserSvc.LinkLine(ctx, usr1.ID, user.LinkLine{Code: "bogus"})
	assert.Error(t, err)

	_, err = app.UserSvc.LinkLine(ctx, usr1.ID, user.LinkLine{Code: "ABCDEF12"})
	assert.EqualError(t, err, "invalid or expired link code")

	code, err := app.UserSvc.IssueLineLinkCode(ctx, lineID)
	require.NoError(t, err)
	assert.Len(t, code, user.LineLinkCodeLen)

	linked, err := app.UserSvc.LinkLine(ctx, usr1.ID, user.LinkLine{Code: " " + strings.ToLower(code) + " "})
	require.NoError(t, err)
	assert.Equal(t, lineID, linked.LineUserID)

	// codes are single use
	_, err = app.UserSvc.LinkLine(ctx, usr2.ID, user.LinkLine{Code: code})
	assert.EqualError(t, err, "invalid or expired link code")
	refreshed, err := app.UserSvc.GetByID(ctx, usr1.ID)
	require.NoError(t, err)
	assert.Equal(t, lineID, refreshed.LineUserID)

	// a new code from the same LINE account moves it to another user
	code, err = app.UserSvc.IssueLineLinkCode(ctx, lineID)
	require.NoError(t, err)
	linked, err = app.UserSvc.LinkLine(ctx, usr2.ID, user.LinkLine{Code: code})
	require.NoError(t, err)
	assert.Equal(t, lineID, linked.LineUserID)

	refreshed, err = app.UserSvc.GetByID(ctx, usr1.ID)
	require.NoError(t, err)
	assert.Empty(t, refreshed.LineUserID)

	require.NoError(t, app.UserSvc.UnlinkLine(ctx, lineID))
	refreshed, err = app.UserSvc.GetByID(ctx, usr2.ID)
	require.NoError(t, err)
	assert.Empty(t, refreshed.LineUserID)

	assert.NoError(t, app.UserSvc.UnlinkLine(ctx, "  "))
}

func TestService_QueryAndDelete(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin@test.jp", user.RoleAdmin, true)
	student := testutil.CreateUser(t, app.UserRepo, "Yui", "yui@test.jp", user.RoleStudent, true)
	testutil.CreateUser(t, app.UserRepo, "Ren", "ren@test.jp", user.RoleInstructor, true)

	users, total, err := app.UserSvc.Query(ctx, user.QueryFilter{Search: " YU "}, core.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []user.User{student}, users)

	_, total, err = app.UserSvc.Query(ctx, user.QueryFilter{Roles: []string{user.RoleAdmin, user.RoleInstructor}}, core.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	assert.True(t, core.IsPermissionError(app.UserSvc.Delete(ctx, student, admin.ID)))
	assert.True(t, core.IsPermissionError(app.UserSvc.Delete(ctx, admin, admin.ID)))
	require.NoError(t, app.UserSvc.Delete(ctx, admin, student.ID))

	_, err = app.UserSvc.GetByID(ctx, student.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUser_permissions(t *testing.T) {
	admin := user.User{ID: "a", Role: user.RoleAdmin}
	instr := user.User{ID: "i", Role: user.RoleInstructor}
	student := user.User{ID: "s", Role: user.RoleStudent}

	assert.True(t, admin.IsInstructor())
	assert.True(t, admin.CanManage("i"))
	assert.True(t, instr.CanManage("i"))
	assert.False(t, instr.CanManage("x"))
	assert.False(t, student.CanManage("s"))
	assert.True(t, student.IsStudent())
}

func isValidationError(err error) bool {
	_, ok := errors.Cause(err).(*core.ValidationError)
	return ok
}

func isValidatorError(err error) bool {
	return err != nil && !core.IsPermissionError(err) && !core.IsNotFound(err)
}
