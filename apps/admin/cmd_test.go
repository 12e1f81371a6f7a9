package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/manabi/lms/core/user"
	"github.com/manabi/lms/storage/cache"
	inmemdb "github.com/manabi/lms/storage/database/inmem"
	"github.com/manabi/lms/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())
	out := &bytes.Buffer{}
	return &commandLine{
		db:     db,
		usrSvc: user.NewService(usrRepo, cache.NewMemoryCache()),
		out:    out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		if db == nil {
			return fmt.Errorf("no database")
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "quiz_tags", "sql"}},
	}
	for _, tt := range tests {
		tt := tt
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	t.Run("in-memory mode", func(t *testing.T) {
		cli.db = nil
		checkErr(t, cliTest{wantErr: errNoDB}, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_setRole(t *testing.T) {
	cli, out := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Aiko", "aiko@test.jp", user.RoleStudent, true)

	type extra struct {
		wantRole string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"setrole"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"setrole", "-lol", "x"}, wantErr: errHelp},
		{name: "email but no role", args: []string{"setrole", "-email", usr.Email}, wantErr: errHelp},
		{name: "invalid role", args: []string{"setrole", "-email", usr.Email, "-role", "king"}, wantErrStr: "invalid role"},
		{name: "user not found", args: []string{"setrole", "-email", "lol@test.jp", "-role", "admin"}, wantErr: user.ErrNotFound},
		{name: "promote", args: []string{"setrole", "-email", usr.Email, "-role", "instructor"}, extra: extra{wantRole: user.RoleInstructor}},
		{name: "email case-insensitive", args: []string{"setrole", "-email", "AIKO@test.jp", "-role", "ADMIN"}, extra: extra{wantRole: user.RoleAdmin}},
	}
	for _, tt := range tests {
		tt := tt
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkErr(t, tt, cli.run(args))

			if extra, ok := tt.extra.(extra); ok {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if refreshedUsr.Role != extra.wantRole {
					t.Errorf("role = %s; want %s", refreshedUsr.Role, extra.wantRole)
				}
				if want := fmt.Sprintf("%s is now %s\n", usr.Email, extra.wantRole); out.String() != want {
					t.Errorf("output = %q; want %q", out.String(), want)
				}
			}
		})
	}
}

func Test_commandLine_deactivate(t *testing.T) {
	cli, out := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Kenji", "kenji@test.jp", user.RoleInstructor, true)

	tests := []cliTest{
		{name: "no args", args: []string{"deactivate"}, wantErr: errHelp},
		{name: "user not found", args: []string{"deactivate", "-email", "lol@test.jp"}, wantErr: user.ErrNotFound},
		{name: "deactivate", args: []string{"deactivate", "-email", usr.Email}, extra: true},
	}
	for _, tt := range tests {
		tt := tt
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkErr(t, tt, cli.run(args))

			if tt.extra != nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if refreshedUsr.IsActive {
					t.Error("user still active")
				}
				if want := usr.Email + " has been deactivated\n"; out.String() != want {
					t.Errorf("output = %q; want %q", out.String(), want)
				}
			}
		})
	}
}

func Test_commandLine_noUserService(t *testing.T) {
	cli := &commandLine{out: &bytes.Buffer{}}
	err := cli.run([]string{"admin", "deactivate", "-email", "x@test.jp"})
	checkErr(t, cliTest{wantErr: errNoUser}, err)
}
