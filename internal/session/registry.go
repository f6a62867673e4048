package session

import (
	"context"
	"sync"

	"committee-live/internal/events"

	"go.uber.org/zap"
)

// Lifecycle hooks run on the group's coordinator goroutine.
type Lifecycle interface {
	// Load fills a fresh group from storage.
	Load(ctx context.Context, g *Group) error
	Joined(ctx context.Context, g *Group, p Participant) error
	Left(ctx context.Context, g *Group, p Participant) error
}

type entry struct {
	coord *Coordinator
	refs  int
}

// Registry owns the live coordinators, keyed by group id. A coordinator is created by
// the first join and destroyed when the last participant leaves with no poll active.
type Registry struct {
	mu        sync.Mutex
	groups    map[string]*entry
	publisher events.Publisher
	lifecycle Lifecycle
	log       *zap.Logger
}

func NewRegistry(publisher events.Publisher, lifecycle Lifecycle) *Registry {
	return &Registry{
		groups:    make(map[string]*entry),
		publisher: publisher,
		lifecycle: lifecycle,
		log:       zap.L().With(zap.String("component", "session_registry")),
	}
}

// Acquire joins p to the group's session, creating the session when needed.
func (r *Registry) Acquire(ctx context.Context, groupID string, p Participant) (*Coordinator, error) {
	r.mu.Lock()
	e, ok := r.groups[groupID]
	if !ok {
		e = &entry{coord: newCoordinator(groupID, r.publisher, r.lifecycle.Load)}
		r.groups[groupID] = e
		r.log.Info("group session created", zap.String("group_id", groupID))
	}
	e.refs++
	r.mu.Unlock()

	err := e.coord.Do(ctx, func(ctx context.Context, g *Group) error {
		g.join(p)
		return r.lifecycle.Joined(ctx, g, p)
	})
	if err != nil {
		r.release(groupID, e)
		return nil, err
	}
	return e.coord, nil
}

// Release removes the socket from its group session.
func (r *Registry) Release(groupID, clientID string) {
	r.mu.Lock()
	e, ok := r.groups[groupID]
	r.mu.Unlock()
	if !ok {
		return
	}

	found := false
	err := e.coord.Do(context.Background(), func(ctx context.Context, g *Group) error {
		p, ok := g.leave(clientID)
		if !ok {
			return nil
		}
		found = true
		return r.lifecycle.Left(ctx, g, p)
	})
	if err != nil {
		r.log.Warn("leave failed", zap.String("group_id", groupID), zap.String("client_id", clientID), zap.Error(err))
	}
	// a stopped coordinator no longer knows its participants
	if found || err != nil {
		r.release(groupID, e)
	}
}

func (r *Registry) release(groupID string, e *entry) {
	r.mu.Lock()
	e.refs--
	destroy := e.refs <= 0 && !e.coord.HasActive() && r.groups[groupID] == e
	if destroy {
		delete(r.groups, groupID)
	}
	r.mu.Unlock()

	if destroy {
		e.coord.Stop()
		r.log.Info("group session destroyed", zap.String("group_id", groupID))
	}
}

// Lookup returns the running coordinator for groupID.
func (r *Registry) Lookup(groupID string) (*Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.groups[groupID]
	if !ok {
		return nil, false
	}
	return e.coord, true
}

// Len counts live group sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// Shutdown stops every coordinator.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	groups := r.groups
	r.groups = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range groups {
		e.coord.Stop()
	}
}
