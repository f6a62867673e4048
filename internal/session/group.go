package session

import (
	"sort"

	"committee-live/internal/domain/event"
	"committee-live/internal/domain/member"
	"committee-live/internal/domain/poll"
	"committee-live/internal/events"
)

// Participant is one connected socket in a group's live session
type Participant struct {
	ClientID string
	SAPIN    int
	Name     string
	Status   member.Status
	Access   member.AccessLevel
}

type emission struct {
	room string
	env  events.Envelope
}

// Group is the runtime-only state of one group's live session. It is only ever
// touched from its Coordinator goroutine.
type Group struct {
	id           string
	participants map[string]Participant
	published    *event.Event
	active       *poll.Poll
	pending      []emission
}

func newGroup(id string) *Group {
	return &Group{id: id, participants: make(map[string]Participant)}
}

func (g *Group) ID() string { return g.id }

func (g *Group) join(p Participant) {
	g.participants[p.ClientID] = p
}

func (g *Group) leave(clientID string) (Participant, bool) {
	p, ok := g.participants[clientID]
	if ok {
		delete(g.participants, clientID)
	}
	return p, ok
}

// NumClients counts sockets, not members.
func (g *Group) NumClients() int { return len(g.participants) }

// Attendees returns one entry per distinct SAPIN, ordered by SAPIN.
func (g *Group) Attendees() []poll.Attendee {
	seen := make(map[int]poll.Attendee, len(g.participants))
	for _, p := range g.participants {
		seen[p.SAPIN] = poll.Attendee{SAPIN: p.SAPIN, Status: p.Status}
	}
	out := make([]poll.Attendee, 0, len(seen))
	for _, a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SAPIN < out[j].SAPIN })
	return out
}

func (g *Group) PublishedEventID() string {
	if g.published == nil {
		return ""
	}
	return g.published.ID
}

// SetPublished records e as the published event, or clears it when e is not published.
func (g *Group) SetPublished(e event.Event) {
	if e.IsPublished {
		g.published = &e
		return
	}
	if g.published != nil && g.published.ID == e.ID {
		g.published = nil
	}
}

// Active returns the cached active poll.
func (g *Group) Active() (poll.Poll, bool) {
	if g.active == nil {
		return poll.Poll{}, false
	}
	return *g.active, true
}

func (g *Group) ActivePollID() string {
	if g.active == nil {
		return ""
	}
	return g.active.ID
}

// Track updates the active pointer after p was persisted: a non-null poll becomes
// active and a null poll that was active clears it.
func (g *Group) Track(p poll.Poll) {
	if !p.State.IsNull() {
		g.active = &p
		return
	}
	if g.active != nil && g.active.ID == p.ID {
		g.active = nil
	}
}

// Forget clears the active pointer when it refers to id.
func (g *Group) Forget(id string) {
	if g.active != nil && g.active.ID == id {
		g.active = nil
	}
}

// Emit queues an indication for audience. Queued indications are published only
// when the running job succeeds.
func (g *Group) Emit(a Audience, msgType string, data any) {
	g.EmitRoom(a.Room(g.id), msgType, data)
}

func (g *Group) EmitRoom(room, msgType string, data any) {
	g.pending = append(g.pending, emission{room: room, env: events.Envelope{Type: msgType, Data: data}})
}
