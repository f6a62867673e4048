package commands

import (
	"committee-live/internal/domain/event"
	"committee-live/internal/domain/member"
)

const (
	TypeEventGet    = "event.get"
	TypeEventCreate = "event.create"
	TypeEventUpdate = "event.update"
)

type GetEventsCommand struct {
	Actor
	ID string `json:"id,omitempty" validate:"omitempty,uuid"`
}

func (GetEventsCommand) CommandType() string { return TypeEventGet }

func (GetEventsCommand) Requires() member.AccessLevel { return member.AccessReadOnly }

func (c GetEventsCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c)
}

type CreateEventCommand struct {
	Actor
	Event event.Create
}

func (CreateEventCommand) CommandType() string { return TypeEventCreate }

func (CreateEventCommand) Requires() member.AccessLevel { return member.AccessReadWrite }

func (c CreateEventCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c.Event)
}

type UpdateEventCommand struct {
	Actor
	ID      string        `json:"id" validate:"required,uuid"`
	Changes event.Changes `json:"changes"`
}

func (UpdateEventCommand) CommandType() string { return TypeEventUpdate }

func (UpdateEventCommand) Requires() member.AccessLevel { return member.AccessReadWrite }

func (c UpdateEventCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c)
}
