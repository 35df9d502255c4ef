package main

import (
	"fmt"

	"github.com/pkg/errors"

	echoapi "github.com/edpsychconnect/connect/apps/api/echo"
)

func (cli *commandLine) printToken(userID, email string) error {
	token, err := echoapi.GenerateToken(echoapi.NewClaims(userID, email, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	_, err = fmt.Fprintln(cli.out, token)
	return err
}
