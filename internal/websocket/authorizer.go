package websocket

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"committee-live/internal/domain/member"
	"committee-live/internal/events"
	"committee-live/internal/repository"
	committee_errors "committee-live/pkg/errors"
)

// GroupAuthorizer decides whether a member may join a group's live session
// and which rooms the socket is placed in.
type GroupAuthorizer struct {
	members repository.MemberRepository
}

// NewGroupAuthorizer creates a new group authorizer
func NewGroupAuthorizer(members repository.MemberRepository) *GroupAuthorizer {
	return &GroupAuthorizer{members: members}
}

// Admit resolves the roster entry of sapin. Members missing from the roster or
// without access are refused.
func (a *GroupAuthorizer) Admit(ctx context.Context, groupID string, sapin int) (member.Member, error) {
	if strings.TrimSpace(groupID) == "" {
		return member.Member{}, fmt.Errorf("%w: groupId is required", committee_errors.ErrInvalidInput)
	}
	m, err := a.members.GetMember(ctx, groupID, sapin)
	if err != nil {
		if errors.Is(err, committee_errors.ErrNotFound) {
			return member.Member{}, fmt.Errorf("%w: not a member of %s", committee_errors.ErrForbidden, groupID)
		}
		return member.Member{}, err
	}
	if m.AccessLevel <= member.AccessNone {
		return member.Member{}, fmt.Errorf("%w: no access to %s", committee_errors.ErrForbidden, groupID)
	}
	return m, nil
}

// Rooms lists the rooms a member's socket joins. Read-write members also
// receive admin-only indications.
func (a *GroupAuthorizer) Rooms(groupID string, m member.Member) []string {
	rooms := []string{events.GroupRoom(groupID)}
	if m.AccessLevel.IsAdmin() {
		rooms = append(rooms, events.AdminRoom(groupID))
	}
	return rooms
}
