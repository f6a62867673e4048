package services

import (
	"context"
	"errors"

	"committee-live/internal/commands"
	"committee-live/internal/domain/event"
	"committee-live/internal/events"
	"committee-live/internal/repository"
	"committee-live/internal/session"
	committee_errors "committee-live/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventService struct {
	events repository.EventRepository
	logger *zap.Logger
}

func NewEventService(eventRepo repository.EventRepository, bus *commands.Bus) *EventService {
	svc := &EventService{
		events: eventRepo,
		logger: zap.L().With(zap.String("component", "event_service")),
	}
	if bus != nil {
		svc.RegisterHandlers(bus)
	}
	return svc
}

func (s *EventService) RegisterHandlers(bus *commands.Bus) {
	bus.Register(commands.TypeEventGet, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.GetEventsCommand)
		if !ok {
			return commands.Result{}, committee_errors.ErrInvalidInput
		}
		evs, err := s.GetEvents(ctx, c)
		return commands.Result{Payload: evs}, err
	}))
	bus.Register(commands.TypeEventCreate, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.CreateEventCommand)
		if !ok {
			return commands.Result{}, committee_errors.ErrInvalidInput
		}
		e, err := s.CreateEvent(ctx, c)
		return commands.Result{AggregateID: e.ID, Payload: e}, err
	}))
	bus.Register(commands.TypeEventUpdate, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.UpdateEventCommand)
		if !ok {
			return commands.Result{}, committee_errors.ErrInvalidInput
		}
		e, err := s.UpdateEvent(ctx, c)
		return commands.Result{AggregateID: e.ID, Payload: e}, err
	}))
}

// GetEvents lists the group's events; participants below read-write only get published ones.
func (s *EventService) GetEvents(ctx context.Context, cmd commands.GetEventsCommand) ([]event.Event, error) {
	q := event.Query{GroupID: cmd.GroupID, ID: cmd.ID}
	if !cmd.Access.IsAdmin() {
		published := true
		q.IsPublished = &published
	}
	return s.events.GetEvents(ctx, q)
}

func (s *EventService) CreateEvent(ctx context.Context, cmd commands.CreateEventCommand) (event.Event, error) {
	var created event.Event
	err := cmd.Session.Do(ctx, func(ctx context.Context, g *session.Group) error {
		e := cmd.Event.Build(uuid.NewString(), g.ID())
		var unpublished []event.Event
		err := s.events.Transaction(ctx, func(tx repository.EventRepository) error {
			if e.IsPublished {
				changed, err := tx.UnpublishOthers(ctx, g.ID(), e.ID)
				if err != nil {
					return err
				}
				unpublished = changed
			}
			return tx.AddEvent(ctx, &e)
		})
		if err != nil {
			return err
		}
		s.announceUnpublished(g, unpublished)
		g.SetPublished(e)
		g.Emit(session.EventAudience(e), events.TypeEventAdded, e)
		created = e
		return nil
	})
	return created, err
}

// UpdateEvent applies changes; publishing an event unpublishes the group's previous one.
func (s *EventService) UpdateEvent(ctx context.Context, cmd commands.UpdateEventCommand) (event.Event, error) {
	var updated event.Event
	err := cmd.Session.Do(ctx, func(ctx context.Context, g *session.Group) error {
		prev, err := s.events.GetEvent(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if prev.GroupID != g.ID() {
			return committee_errors.ErrNotFound
		}
		next := cmd.Changes.Apply(prev)

		var unpublished []event.Event
		err = s.events.Transaction(ctx, func(tx repository.EventRepository) error {
			if next.IsPublished && !prev.IsPublished {
				changed, err := tx.UnpublishOthers(ctx, g.ID(), next.ID)
				if err != nil {
					return err
				}
				unpublished = changed
			}
			return tx.UpdateEvent(ctx, next)
		})
		if err != nil {
			return err
		}
		s.announceUnpublished(g, unpublished)
		g.SetPublished(next)
		audience := session.Widest(session.EventAudience(prev), session.EventAudience(next))
		g.Emit(audience, events.TypeEventUpdated, next)
		if prev.IsPublished != next.IsPublished {
			s.logger.Info("event visibility changed",
				zap.String("group_id", g.ID()), zap.String("event_id", next.ID), zap.Bool("published", next.IsPublished))
		}
		updated = next
		return nil
	})
	return updated, err
}

func (s *EventService) announceUnpublished(g *session.Group, unpublished []event.Event) {
	for _, e := range unpublished {
		g.SetPublished(e)
		g.Emit(session.AudienceEveryone, events.TypeEventUpdated, e)
	}
}

// SyncEvent reloads eventID after another instance changed it.
func (s *EventService) SyncEvent(ctx context.Context, g *session.Group, eventID string) error {
	e, err := s.events.GetEvent(ctx, eventID)
	if errors.Is(err, committee_errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if e.GroupID == g.ID() {
		g.SetPublished(e)
	}
	return nil
}
