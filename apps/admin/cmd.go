package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *sql.DB
	tenantSvc   *tenant.Service
	usrSvc      *user.Service
	studentSvc  *student.Service
	academicSvc *academic.Service
	validate    *validator.Validate
	translator  ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a database migration command (up, down, status, ...)")
	fmt.Println("  createschool -name NAME -slug SLUG [-color HEX] [-branch NAME] - create a school & its main branch")
	fmt.Println("  adduser -school SLUG -username USERNAME -email EMAIL [-name NAME] [-admin] - create or update a school-wide user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  importstudents -school SLUG -file FILE.xlsx [-branch NAME] - import students from a spreadsheet")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSchoolCmd := flag.NewFlagSet("createschool", flag.ExitOnError)
	createSchoolName := createSchoolCmd.String("name", "", "The school's name.")
	createSchoolSlug := createSchoolCmd.String("slug", "", "The school's unique slug (letters, digits & underscores).")
	createSchoolColor := createSchoolCmd.String("color", "", "The school's primary color, e.g. #228be6.")
	createSchoolBranch := createSchoolCmd.String("branch", "", "The main branch's name. Defaults to Main.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserSchool := addUserCmd.String("school", "", "The slug of the user's school.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name. Defaults to the username.")
	addUserIsAdmin := addUserCmd.Bool("admin", false, "Give the user every role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importstudents", flag.ExitOnError)
	importSchool := importCmd.String("school", "", "The slug of the students' school.")
	importBranch := importCmd.String("branch", "", "The branch's name. Defaults to the school's main branch.")
	importFile := importCmd.String("file", "", "The xlsx workbook. Columns: "+strings.Join(student.ImportColumns(), ", ")+".")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createschool":
		if err := createSchoolCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createSchoolName == "" || *createSchoolSlug == "" {
			createSchoolCmd.Usage()
			return errHelp
		}
		return cli.createSchool(tenant.NewTenant{
			Name:         *createSchoolName,
			Slug:         *createSchoolSlug,
			PrimaryColor: *createSchoolColor,
			BranchName:   *createSchoolBranch,
		})

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserSchool == "" || *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserSchool, *addUserName, *addUserUname, *addUserEmail, pwd, *addUserIsAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importSchool == "" || *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importSchool, *importBranch, *importFile)

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
