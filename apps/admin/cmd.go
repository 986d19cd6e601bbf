package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/exam"
	"github.com/trezcool/daftari/core/fee"
	"github.com/trezcool/daftari/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	db      *sqlx.DB
	logger  core.Logger
	usrSvc  *user.Service
	examSvc *exam.Service
	feeSvc  *fee.Service
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  init - create and migrate the database, then create the default admin")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME [-admin] - create a teacher (or an admin)")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME - reset user's password")
	fmt.Fprintln(cli.out, "  results -user USERNAME -class ID [-exam ID] - print the ranked results of a class")
	fmt.Fprintln(cli.out, "  fees -user USERNAME -class ID - print the fee balances of a class")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The new user's username. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Create an admin instead of a teacher.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username. The password will be prompted next.")

	resultsCmd := flag.NewFlagSet("results", flag.ContinueOnError)
	resultsUname := resultsCmd.String("user", "", "Your username. Your password will be prompted next.")
	resultsClass := resultsCmd.Int("class", 0, "The class ID.")
	resultsExam := resultsCmd.Int("exam", 0, "The exam ID; the latest exam of the class when omitted.")

	feesCmd := flag.NewFlagSet("fees", flag.ContinueOnError)
	feesUname := feesCmd.String("user", "", "Your username. Your password will be prompted next.")
	feesClass := feesCmd.Int("class", 0, "The class ID.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, resultsCmd, feesCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "init":
		return cli.initialize(ctx)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		confirm, err := cli.promptPassword("Confirm password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserUname, pwd, confirm, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordUname, pwd)

	case "results":
		if err := resultsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resultsUname == "" || *resultsClass == 0 {
			resultsCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Password:")
		if err != nil {
			return err
		}
		return cli.results(ctx, *resultsUname, pwd, *resultsClass, *resultsExam)

	case "fees":
		if err := feesCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *feesUname == "" || *feesClass == 0 {
			feesCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Password:")
		if err != nil {
			return err
		}
		return cli.fees(ctx, *feesUname, pwd, *feesClass)

	default:
		cli.printUsage()
		return errHelp
	}
}
