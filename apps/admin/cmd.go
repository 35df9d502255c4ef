package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/mentoring"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf     *core.Config
	db       *sqlx.DB
	svc      mentoring.Service
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  token -user ID [-email EMAIL] - print a signed API token for the user")
	_, _ = fmt.Fprintln(cli.out, "  addprofile -user ID -role mentor|mentee|both [-email EMAIL] [-phase PHASE] [-years N] - create or update a mentoring profile")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenUser := tokenCmd.String("user", "", "The id of the user the token authenticates.")
	tokenEmail := tokenCmd.String("email", "", "The email of the user (optional).")

	profileCmd := flag.NewFlagSet("addprofile", flag.ContinueOnError)
	profileUser := profileCmd.String("user", "", "The id of the user.")
	profileRole := profileCmd.String("role", "", "mentor, mentee or both.")
	profileEmail := profileCmd.String("email", "", "Contact email used for notifications (optional).")
	profilePhase := profileCmd.String("phase", "", "Education phase (optional).")
	profileYears := profileCmd.Int("years", 0, "Years of experience (optional).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "token":
		tokenCmd.SetOutput(cli.out)
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUser == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.printToken(*tokenUser, *tokenEmail)
	case "addprofile":
		profileCmd.SetOutput(cli.out)
		if err := profileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *profileUser == "" || *profileRole == "" {
			profileCmd.Usage()
			return errHelp
		}
		return cli.addProfile(mentoring.UpdateProfile{
			UserID:          *profileUser,
			Role:            *profileRole,
			ContactEmail:    *profileEmail,
			Phase:           *profilePhase,
			YearsExperience: *profileYears,
		})
	default:
		cli.printUsage()
		return errHelp
	}
}
