package events

import "strings"

// Indication types pushed to sockets
const (
	TypePollAdded    = "poll:added"
	TypePollUpdated  = "poll:updated"
	TypePollDeleted  = "poll:deleted"
	TypePollVoted    = "poll:voted"
	TypeEventAdded   = "event:added"
	TypeEventUpdated = "event:updated"
)

// Room and channel naming
const (
	RoomPrefixGroup   = "group:"
	AdminRoomSuffix   = ":admins"
	ChannelPrefixRoom = "channel:room:"
)

// GroupRoom is joined by every participant of a group.
func GroupRoom(groupID string) string {
	return RoomPrefixGroup + groupID
}

// AdminRoom is joined by participants with read-write access or better.
func AdminRoom(groupID string) string {
	return RoomPrefixGroup + groupID + AdminRoomSuffix
}

// RoomChannel is the redis channel carrying a room's indications across instances.
func RoomChannel(room string) string {
	return ChannelPrefixRoom + room
}

// GroupFromRoom returns the group of a group or admin room.
func GroupFromRoom(room string) (string, bool) {
	if !strings.HasPrefix(room, RoomPrefixGroup) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(room, RoomPrefixGroup), AdminRoomSuffix)
	return id, id != ""
}
