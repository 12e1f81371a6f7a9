package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/manabi/lms/core"
)

// setRole promotes (or demotes) a provisioned user.
func (cli *commandLine) setRole(email, role string) error {
	if cli.usrSvc == nil {
		return errNoUser
	}
	usr, err := cli.usrSvc.SetRole(context.Background(), email, strings.ToUpper(core.CleanString(role)))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is now %s\n", usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) deactivate(email string) error {
	if cli.usrSvc == nil {
		return errNoUser
	}
	usr, err := cli.usrSvc.Deactivate(context.Background(), email)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s has been deactivated\n", usr.Email)
	return nil
}
