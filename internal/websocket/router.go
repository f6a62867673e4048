package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"committee-live/internal/commands"
	"committee-live/internal/domain/event"
	"committee-live/internal/domain/member"
	"committee-live/internal/domain/poll"
	committee_errors "committee-live/pkg/errors"
)

// Dispatch runs one bound operation for a client.
type Dispatch func(ctx context.Context, data json.RawMessage) (any, error)

type decodeFunc func(actor commands.Actor, data json.RawMessage) (commands.Command, error)

type route struct {
	op       string
	requires member.AccessLevel
	decode   decodeFunc
}

// Router maps socket operations onto the command bus.
type Router struct {
	bus    *commands.Bus
	routes []route
}

func NewRouter(bus *commands.Bus) *Router {
	return &Router{bus: bus, routes: defaultRoutes()}
}

// Ops lists every operation the gateway knows.
func (r *Router) Ops() []string {
	ops := make([]string, len(r.routes))
	for i, rt := range r.routes {
		ops[i] = rt.op
	}
	return ops
}

// Bind builds the dispatch table of one connection. Operations above the caller's
// access level are bound to a handler that always answers FORBIDDEN.
func (r *Router) Bind(actor commands.Actor) map[string]Dispatch {
	table := make(map[string]Dispatch, len(r.routes))
	for _, rt := range r.routes {
		if actor.Access < rt.requires {
			table[rt.op] = forbidden(rt)
			continue
		}
		table[rt.op] = r.dispatch(actor, rt)
	}
	return table
}

func (r *Router) dispatch(actor commands.Actor, rt route) Dispatch {
	return func(ctx context.Context, data json.RawMessage) (any, error) {
		cmd, err := rt.decode(actor, data)
		if err != nil {
			return nil, err
		}
		res, err := r.bus.Execute(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return res.Payload, nil
	}
}

func forbidden(rt route) Dispatch {
	return func(context.Context, json.RawMessage) (any, error) {
		return nil, fmt.Errorf("%w: %s requires %s access", committee_errors.ErrForbidden, rt.op, rt.requires)
	}
}

type idPayload struct {
	ID string `json:"id"`
}

type updatePayload[T any] struct {
	ID      string `json:"id"`
	Changes T      `json:"changes"`
}

type votePayload struct {
	ID    string `json:"id"`
	Votes []int  `json:"votes"`
}

type pollQuery struct {
	EventID string `json:"eventId"`
	ID      string `json:"id"`
}

func defaultRoutes() []route {
	routes := []route{
		{op: "poll:get", requires: commands.GetPollsCommand{}.Requires(), decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
			var q pollQuery
			if err := decodeOptional(data, &q); err != nil {
				return nil, err
			}
			return commands.GetPollsCommand{Actor: a, EventID: q.EventID, ID: q.ID}, nil
		}},
		{op: "poll:create", requires: commands.CreatePollCommand{}.Requires(), decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
			var c poll.Create
			if err := decodeStrict(data, &c); err != nil {
				return nil, err
			}
			return commands.CreatePollCommand{Actor: a, Poll: c}, nil
		}},
		{op: "poll:update", requires: commands.UpdatePollCommand{}.Requires(), decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
			var u updatePayload[poll.Changes]
			if err := decodeStrict(data, &u); err != nil {
				return nil, err
			}
			return commands.UpdatePollCommand{Actor: a, ID: u.ID, Changes: u.Changes}, nil
		}},
		{op: "poll:delete", requires: commands.DeletePollCommand{}.Requires(), decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
			id, err := decodeID(data)
			if err != nil {
				return nil, err
			}
			return commands.DeletePollCommand{Actor: a, ID: id}, nil
		}},
		{op: "poll:vote", requires: commands.VotePollCommand{}.Requires(), decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
			var v votePayload
			if err := decodeStrict(data, &v); err != nil {
				return nil, err
			}
			return commands.VotePollCommand{Actor: a, ID: v.ID, Votes: v.Votes}, nil
		}},
		{op: "poll:result", requires: commands.PollResultCommand{}.Requires(), decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
			id, err := decodeID(data)
			if err != nil {
				return nil, err
			}
			return commands.PollResultCommand{Actor: a, ID: id}, nil
		}},
		{op: "event:get", requires: commands.GetEventsCommand{}.Requires(), decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
			var q idPayload
			if err := decodeOptional(data, &q); err != nil {
				return nil, err
			}
			return commands.GetEventsCommand{Actor: a, ID: q.ID}, nil
		}},
		{op: "event:create", requires: commands.CreateEventCommand{}.Requires(), decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
			var c event.Create
			if err := decodeStrict(data, &c); err != nil {
				return nil, err
			}
			return commands.CreateEventCommand{Actor: a, Event: c}, nil
		}},
		{op: "event:update", requires: commands.UpdateEventCommand{}.Requires(), decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
			var u updatePayload[event.Changes]
			if err := decodeStrict(data, &u); err != nil {
				return nil, err
			}
			return commands.UpdateEventCommand{Actor: a, ID: u.ID, Changes: u.Changes}, nil
		}},
	}
	for _, action := range []poll.Action{poll.ActionShow, poll.ActionOpen, poll.ActionClose, poll.ActionUnshow, poll.ActionReset} {
		routes = append(routes, route{
			op:       "poll:" + string(action),
			requires: commands.PollActionCommand{Action: action}.Requires(),
			decode: func(a commands.Actor, data json.RawMessage) (commands.Command, error) {
				id, err := decodeID(data)
				if err != nil {
					return nil, err
				}
				return commands.PollActionCommand{Actor: a, ID: id, Action: action}, nil
			},
		})
	}
	return routes
}

func isEmpty(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeStrict(data json.RawMessage, v any) error {
	if isEmpty(data) {
		return fmt.Errorf("%w: missing payload", committee_errors.ErrInvalidInput)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", committee_errors.ErrInvalidInput, err)
	}
	return nil
}

func decodeOptional(data json.RawMessage, v any) error {
	if isEmpty(data) {
		return nil
	}
	return decodeStrict(data, v)
}

// decodeID accepts a bare id string or an {"id": ...} object.
func decodeID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id, nil
	}
	var p idPayload
	if err := decodeStrict(data, &p); err != nil {
		return "", err
	}
	return p.ID, nil
}
