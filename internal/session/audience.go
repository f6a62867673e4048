package session

import (
	"committee-live/internal/domain/event"
	"committee-live/internal/domain/poll"
	"committee-live/internal/events"
)

// Audience is the partition of a group that receives an indication
type Audience int

const (
	AudienceAdmins Audience = iota
	AudienceEveryone
)

func (a Audience) String() string {
	if a == AudienceEveryone {
		return "everyone"
	}
	return "admins"
}

// Room returns the hub room that carries the audience for groupID.
func (a Audience) Room(groupID string) string {
	if a == AudienceEveryone {
		return events.GroupRoom(groupID)
	}
	return events.AdminRoom(groupID)
}

// AudienceFor decides who sees a poll: everyone once the poll is live or its event is
// published, otherwise only admins. owner may be nil when the event is unknown.
func AudienceFor(owner *event.Event, p poll.Poll) Audience {
	if !p.State.IsNull() {
		return AudienceEveryone
	}
	if owner != nil && owner.IsPublished {
		return AudienceEveryone
	}
	return AudienceAdmins
}

// EventAudience decides who sees an event.
func EventAudience(e event.Event) Audience {
	if e.IsPublished {
		return AudienceEveryone
	}
	return AudienceAdmins
}

// Widest returns the larger of two audiences. A change that takes a poll out of
// public view still has to reach everyone who could see it before.
func Widest(a, b Audience) Audience {
	if a > b {
		return a
	}
	return b
}
