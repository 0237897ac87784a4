package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

func (cli *commandLine) createSchool(nt tenant.NewTenant) error {
	if err := nt.Validate(cli.validate); err != nil {
		return cli.describe(err)
	}
	t, b, err := cli.tenantSvc.Create(context.Background(), nt)
	if err != nil {
		return err
	}
	fmt.Printf("school %q created: id=%s main_branch=%s\n", t.Slug, t.ID, b.ID)
	return nil
}

// addUser updates or creates a school-wide user.User
func (cli *commandLine) addUser(school, name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if name == "" {
		name = uname
	}

	t, err := cli.tenantSvc.GetBySlug(ctx, core.CleanString(school, true /* lower */))
	if err != nil {
		return err
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err == nil {
		if usr.TenantID != t.ID {
			return fmt.Errorf("user %q belongs to another school", uname)
		}
		uu := user.UpdateUser{Name: name, Username: uname, Email: email, Password: pwd, PasswordConfirm: pwd}
		active := true
		uu.IsActive = &active
		if isAdmin {
			uu.Roles = user.AllRoles
		}
		if err = uu.Validate(usr, cli.validate, cli.usrSvc); err != nil {
			return cli.describe(err)
		}
		_, err = cli.usrSvc.Update(ctx, usr, uu)
		return err
	}
	if !core.IsNotFound(err) {
		return err
	}

	nu := user.NewUser{Name: name, Username: uname, Email: email, Password: pwd, PasswordConfirm: pwd}
	if isAdmin {
		nu.Roles = user.AllRoles
	}
	if err = nu.Validate(cli.validate, cli.usrSvc); err != nil {
		return cli.describe(err)
	}
	_, err = cli.usrSvc.Create(ctx, core.Scope{TenantID: t.ID}, nu)
	return err
}

// describe flattens validation errors into a single readable error.
func (cli *commandLine) describe(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := core.TranslateErrors(verrs, cli.translator)
	msgs := make([]string, 0, len(fields))
	for field, msg := range fields {
		msgs = append(msgs, field+": "+msg)
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
