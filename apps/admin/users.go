package main

import (
	"context"
	"fmt"

	"github.com/trezcool/daftari/core/access"
	"github.com/trezcool/daftari/core/user"
)

func (cli *commandLine) addUser(ctx context.Context, uname, pwd, confirm string, isAdmin bool) error {
	role := access.RoleTeacher
	if isAdmin {
		role = access.RoleAdmin
	}
	usr, err := cli.usrSvc.Register(ctx, user.NewUser{
		Username:        uname,
		Password:        pwd,
		PasswordConfirm: confirm,
		Role:            role,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %q created\n", usr.Role, usr.Username)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	return cli.usrSvc.ResetPassword(ctx, user.ResetPassword{
		Username:        uname,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
}
