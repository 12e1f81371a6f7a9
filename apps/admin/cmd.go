package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/manabi/lms/core/user"
)

var (
	errHelp   = errors.New("help provided")
	errNoDB   = errors.New("migrations need a database; in-memory mode is enabled")
	errNoUser = errors.New("user service not configured")
)

// UserAdmin is the part of the user service the CLI drives.
type UserAdmin interface {
	SetRole(ctx context.Context, email, role string) (user.User, error)
	Deactivate(ctx context.Context, email string) (user.User, error)
}

type commandLine struct {
	db     *sql.DB
	usrSvc UserAdmin
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix")
	fmt.Fprintln(cli.out, "  setrole -email EMAIL -role ROLE - change a user's role (STUDENT, INSTRUCTOR, ADMIN)")
	fmt.Fprintln(cli.out, "  deactivate -email EMAIL - deactivate a user's account")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleCmd.SetOutput(cli.out)
	setRoleEmail := setRoleCmd.String("email", "", "The email of a user who signed in at least once.")
	setRoleRole := setRoleCmd.String("role", "", "The new role: STUDENT, INSTRUCTOR or ADMIN.")

	deactivateCmd := flag.NewFlagSet("deactivate", flag.ContinueOnError)
	deactivateCmd.SetOutput(cli.out)
	deactivateEmail := deactivateCmd.String("email", "", "The email of the user to deactivate.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *setRoleEmail == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleEmail, *setRoleRole)
	case "deactivate":
		if err := deactivateCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *deactivateEmail == "" {
			deactivateCmd.Usage()
			return errHelp
		}
		return cli.deactivate(*deactivateEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}
