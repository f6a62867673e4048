package proxy

import (
	"context"
	"fmt"

	"committee-live/internal/commands"
	committee_errors "committee-live/pkg/errors"
)

// AccessControl rejects commands whose caller is below the command's access level.
type AccessControl struct{}

func NewAccessControl() *AccessControl {
	return &AccessControl{}
}

func (a *AccessControl) Authorize(_ context.Context, cmd commands.Command) error {
	caller := cmd.Caller()
	if caller.Access < cmd.Requires() {
		return fmt.Errorf("%w: %s requires %s access", committee_errors.ErrForbidden, cmd.CommandType(), cmd.Requires())
	}
	return nil
}
