package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/edpsychconnect/connect/apps/api/echo"
	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/mentoring"
	"github.com/edpsychconnect/connect/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv()
	out := new(bytes.Buffer)
	return &commandLine{
		conf:     env.Conf,
		svc:      env.Svc,
		validate: env.Validate,
		out:      out,
	}, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	runMigrationsFunc = func(db *sqlx.DB, command string, args ...string) error {
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

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "meeting_reminders", "sql"}},
	})
}

func Test_commandLine_token(t *testing.T) {
	cli, env, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no user", args: []string{"token"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"token", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "token", "-user", "M1", "-email", "m1@test.uk"}))

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(env.Conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "M1", claims.Subject)
	assert.Equal(t, "m1@test.uk", claims.Email)
}

func Test_commandLine_addProfile(t *testing.T) {
	cli, env, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"addprofile"}, wantErr: errHelp},
		{name: "no role", args: []string{"addprofile", "-user", "M1"}, wantErr: errHelp},
	})

	err := cli.run([]string{"admin", "addprofile", "-user", "M1", "-role", "boss"})
	_, ok := err.(validator.ValidationErrors)
	assert.Truef(t, ok, "want validator.ValidationErrors, got %v", err)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "addprofile", "-user", "M1", "-role", "Mentor", "-email", "m1@test.uk", "-years", "12"}))
	assert.Equal(t, "profile saved: M1 (mentor)\n", out.String())

	prof, err := env.Svc.GetProfile(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, 12, prof.YearsExperience)
	assert.Equal(t, "m1@test.uk", prof.ContactEmail)

	mentors, err := env.Svc.FindMentors(context.Background(), mentoring.MentorFilter{})
	require.NoError(t, err)
	assert.Len(t, mentors, 1)

	_, err = env.Svc.GetProfile(context.Background(), "E1")
	assert.True(t, core.IsNotFound(err))
}
