package main

import (
	"context"
	"time"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/user"
)

// createAdmin creates an active super admin account, or resets the password
// and promotes the account if the email is already taken.
func (cli *commandLine) createAdmin(first, last, email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			FirstName: core.CleanString(first),
			LastName:  core.CleanString(last),
			Email:     email,
			Role:      user.RoleSuperAdmin,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.Role = user.RoleSuperAdmin
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	isActive := true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	return err
}
