package services

import (
	"context"
	"errors"
	"time"

	"committee-live/internal/events"
	"committee-live/internal/session"

	"go.uber.org/zap"
)

const syncTimeout = 5 * time.Second

// SessionSync applies indications published by other instances to the local group
// sessions so their cached published event and active poll follow storage.
type SessionSync struct {
	registry *session.Registry
	polls    *PollService
	events   *EventService
	logger   *zap.Logger
}

func NewSessionSync(registry *session.Registry, polls *PollService, eventSvc *EventService) *SessionSync {
	return &SessionSync{
		registry: registry,
		polls:    polls,
		events:   eventSvc,
		logger:   zap.L().With(zap.String("component", "session_sync")),
	}
}

// Sync handles one encoded indication sent to room. Groups without a local
// session are skipped; they load from storage when someone joins.
func (s *SessionSync) Sync(ctx context.Context, room string, payload []byte) {
	groupID, ok := events.GroupFromRoom(room)
	if !ok {
		return
	}
	coord, ok := s.registry.Lookup(groupID)
	if !ok {
		return
	}
	ref, err := events.DecodeRef(payload)
	if err != nil {
		s.logger.Debug("skipping undecodable indication", zap.String("room", room), zap.Error(err))
		return
	}
	if ref.ID == "" {
		return
	}

	var op session.Op
	switch ref.Type {
	case events.TypePollAdded, events.TypePollUpdated, events.TypePollDeleted:
		op = func(ctx context.Context, g *session.Group) error {
			return s.polls.SyncPoll(ctx, g, ref.ID)
		}
	case events.TypeEventAdded, events.TypeEventUpdated:
		op = func(ctx context.Context, g *session.Group) error {
			return s.events.SyncEvent(ctx, g, ref.ID)
		}
	default:
		return
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	if err := coord.Do(ctx, op); err != nil && !errors.Is(err, session.ErrStopped) {
		s.logger.Warn("failed to sync group session",
			zap.String("group_id", groupID), zap.String("type", ref.Type), zap.String("id", ref.ID), zap.Error(err))
	}
}
