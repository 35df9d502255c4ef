package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/edpsychconnect/connect/core/mentoring"
)

// addProfile creates or updates a mentoring profile along with its CPD profile.
func (cli *commandLine) addProfile(up mentoring.UpdateProfile) error {
	if err := up.Validate(cli.validate); err != nil {
		return err
	}
	prof, err := cli.svc.UpdateProfile(context.Background(), up)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	_, err = fmt.Fprintf(cli.out, "profile saved: %s (%s)\n", prof.UserID, prof.Role)
	return err
}
