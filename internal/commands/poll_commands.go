package commands

import (
	"committee-live/internal/domain/member"
	"committee-live/internal/domain/poll"
)

const (
	TypePollGet    = "poll.get"
	TypePollCreate = "poll.create"
	TypePollUpdate = "poll.update"
	TypePollDelete = "poll.delete"
	TypePollVote   = "poll.vote"
	TypePollResult = "poll.result"
)

// PollActionType is the command type of a lifecycle action.
func PollActionType(a poll.Action) string {
	return "poll." + string(a)
}

type GetPollsCommand struct {
	Actor
	EventID string `json:"eventId,omitempty" validate:"omitempty,uuid"`
	ID      string `json:"id,omitempty" validate:"omitempty,uuid"`
}

func (GetPollsCommand) CommandType() string { return TypePollGet }

func (GetPollsCommand) Requires() member.AccessLevel { return member.AccessReadOnly }

func (c GetPollsCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c)
}

type CreatePollCommand struct {
	Actor
	Poll poll.Create
}

func (CreatePollCommand) CommandType() string { return TypePollCreate }

func (CreatePollCommand) Requires() member.AccessLevel { return member.AccessReadWrite }

func (c CreatePollCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c.Poll)
}

type UpdatePollCommand struct {
	Actor
	ID      string       `json:"id" validate:"required,uuid"`
	Changes poll.Changes `json:"changes"`
}

func (UpdatePollCommand) CommandType() string { return TypePollUpdate }

func (UpdatePollCommand) Requires() member.AccessLevel { return member.AccessReadWrite }

func (c UpdatePollCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c)
}

type DeletePollCommand struct {
	Actor
	ID string `validate:"required,uuid"`
}

func (DeletePollCommand) CommandType() string { return TypePollDelete }

func (DeletePollCommand) Requires() member.AccessLevel { return member.AccessReadWrite }

func (c DeletePollCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c)
}

// PollActionCommand drives show, open, close, unshow and reset.
type PollActionCommand struct {
	Actor
	ID     string      `validate:"required,uuid"`
	Action poll.Action `validate:"required,oneof=show open close unshow reset"`
}

func (c PollActionCommand) CommandType() string { return PollActionType(c.Action) }

func (PollActionCommand) Requires() member.AccessLevel { return member.AccessReadWrite }

func (c PollActionCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c)
}

type VotePollCommand struct {
	Actor
	ID    string `json:"id" validate:"required,uuid"`
	Votes []int  `json:"votes" validate:"required,max=64,dive,min=0"`
}

func (VotePollCommand) CommandType() string { return TypePollVote }

func (VotePollCommand) Requires() member.AccessLevel { return member.AccessReadOnly }

func (c VotePollCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c)
}

type PollResultCommand struct {
	Actor
	ID string `json:"id" validate:"required,uuid"`
}

func (PollResultCommand) CommandType() string { return TypePollResult }

func (PollResultCommand) Requires() member.AccessLevel { return member.AccessReadOnly }

func (c PollResultCommand) Validate() error {
	if err := checkActor(c.Actor); err != nil {
		return err
	}
	return validateStruct(c)
}
