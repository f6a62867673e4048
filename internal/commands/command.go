package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"committee-live/internal/domain/member"
	"committee-live/internal/session"
	committee_errors "committee-live/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var ErrHandlerNotFound = errors.New("command handler not found")

type Command interface {
	CommandType() string
	Validate() error
	// Requires is the minimum access level of the caller.
	Requires() member.AccessLevel
	Caller() Actor
}

// Actor is the connected participant issuing a command, bound to its group session.
type Actor struct {
	GroupID string
	SAPIN   int
	Name    string
	Access  member.AccessLevel
	Session *session.Coordinator
}

func (a Actor) Caller() Actor { return a }

type Result struct {
	AggregateID string
	Payload     interface{}
}

type Handler interface {
	Handle(ctx context.Context, cmd Command) (Result, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, cmd Command) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) (Result, error) {
	return f(ctx, cmd)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct tags and folds failures into ErrInvalidInput.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", committee_errors.ErrInvalidInput, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", committee_errors.ErrInvalidInput, strings.Join(parts, "; "))
}

func checkActor(a Actor) error {
	if a.GroupID == "" || a.SAPIN <= 0 || a.Session == nil {
		return fmt.Errorf("%w: command has no bound session", committee_errors.ErrInvalidInput)
	}
	return nil
}
