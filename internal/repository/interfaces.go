package repository

import (
	"context"

	"committee-live/internal/domain/event"
	"committee-live/internal/domain/member"
	"committee-live/internal/domain/poll"
)

type EventRepository interface {
	GetEvents(ctx context.Context, q event.Query) ([]event.Event, error)
	GetEvent(ctx context.Context, id string) (event.Event, error)
	GetPublishedEvent(ctx context.Context, groupID string) (event.Event, error)
	AddEvent(ctx context.Context, e *event.Event) error
	UpdateEvent(ctx context.Context, e event.Event) error
	UnpublishOthers(ctx context.Context, groupID, keepID string) ([]event.Event, error)

	Transaction(ctx context.Context, fn func(EventRepository) error) error
}

type PollRepository interface {
	GetPolls(ctx context.Context, q poll.Query) ([]poll.Poll, error)
	GetPoll(ctx context.Context, id string) (poll.Poll, error)
	AddPoll(ctx context.Context, p *poll.Poll) error
	UpdatePoll(ctx context.Context, p poll.Poll) error
	DeletePoll(ctx context.Context, id string) error
	MaxIndex(ctx context.Context, eventID string) (int, error)

	PollVote(ctx context.Context, v poll.Vote) error
	PollResults(ctx context.Context, pollID string) ([]poll.Vote, error)
	PollVoters(ctx context.Context, pollID string) ([]int, error)
	PollVoteCount(ctx context.Context, pollID string) (int, error)
	PollClearVotes(ctx context.Context, pollID string) error

	Transaction(ctx context.Context, fn func(PollRepository) error) error
}

type MemberRepository interface {
	GetMember(ctx context.Context, groupID string, sapin int) (member.Member, error)
	GetMembers(ctx context.Context, groupID string, sapins []int) ([]member.Member, error)
	AccessLevel(ctx context.Context, groupID string, sapin int) (member.AccessLevel, error)
	UpsertMember(ctx context.Context, m member.Member) error
}
