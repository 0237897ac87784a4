package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/tenant"
)

var errUnknownBranch = errors.New("unknown branch")

// importStudents loads an xlsx workbook into a branch; failing rows are printed and skipped.
func (cli *commandLine) importStudents(school, branch, file string) error {
	ctx := context.Background()

	t, err := cli.tenantSvc.GetBySlug(ctx, core.CleanString(school, true /* lower */))
	if err != nil {
		return err
	}
	b, err := cli.findBranch(ctx, t.ID, branch)
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, rowErrs, err := student.ParseXLSX(f)
	if err != nil {
		return err
	}
	report, err := cli.studentSvc.Import(ctx, core.Scope{TenantID: t.ID, BranchID: b.ID}, rows, cli.validate, cli.translator, cli.academicSvc)
	if err != nil {
		return err
	}

	for _, re := range append(rowErrs, report.Errors...) {
		fmt.Printf("row %d: %s\n", re.Row, re.Message)
	}
	fmt.Printf("%d student(s) imported into %s, %d row(s) skipped\n", len(report.Created), b.Name, len(rowErrs)+len(report.Errors))
	return nil
}

// findBranch returns the branch called name, or the school's first branch when name is empty.
func (cli *commandLine) findBranch(ctx context.Context, tenantID, name string) (tenant.Branch, error) {
	branches, err := cli.tenantSvc.Branches(ctx, tenantID)
	if err != nil {
		return tenant.Branch{}, err
	}
	if len(branches) == 0 {
		return tenant.Branch{}, errUnknownBranch
	}
	if name == "" {
		return branches[0], nil
	}
	for _, b := range branches {
		if strings.EqualFold(b.Name, core.CleanString(name)) {
			return b, nil
		}
	}
	return tenant.Branch{}, errUnknownBranch
}
