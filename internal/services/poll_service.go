package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"committee-live/internal/commands"
	"committee-live/internal/domain/event"
	"committee-live/internal/domain/member"
	"committee-live/internal/domain/poll"
	"committee-live/internal/events"
	"committee-live/internal/repository"
	"committee-live/internal/session"
	committee_errors "committee-live/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker serializes active poll switches of one group across instances.
type Locker interface {
	WithGroupLock(ctx context.Context, groupID string, action func() error) error
}

type localLocker struct{}

func (localLocker) WithGroupLock(_ context.Context, _ string, action func() error) error {
	return action()
}

// ResultsArchiver stores the frozen results of a closed poll.
type ResultsArchiver interface {
	Archive(ctx context.Context, groupID string, p poll.Poll, ballots []poll.Vote) error
}

// Presence shares who is connected to a group across instances.
type Presence interface {
	Join(ctx context.Context, groupID, clientID string, a poll.Attendee) error
	Leave(ctx context.Context, groupID, clientID string) error
	Attendees(ctx context.Context, groupID string) ([]poll.Attendee, error)
}

const archiveTimeout = 30 * time.Second

type PollService struct {
	polls    repository.PollRepository
	events   repository.EventRepository
	members  repository.MemberRepository
	locker   Locker
	archive  ResultsArchiver
	presence Presence
	logger   *zap.Logger
	now     func() time.Time

	archiving sync.WaitGroup
}

type PollOption func(*PollService)

// WithLocker installs a cross-instance group lock.
func WithLocker(l Locker) PollOption {
	return func(s *PollService) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithArchiver uploads results of every closed poll.
func WithArchiver(a ResultsArchiver) PollOption {
	return func(s *PollService) { s.archive = a }
}

// WithPresence counts members connected to other instances in the live indicator.
func WithPresence(p Presence) PollOption {
	return func(s *PollService) { s.presence = p }
}

func NewPollService(polls repository.PollRepository, eventRepo repository.EventRepository, members repository.MemberRepository, bus *commands.Bus, opts ...PollOption) *PollService {
	svc := &PollService{
		polls:   polls,
		events:  eventRepo,
		members: members,
		locker:  localLocker{},
		logger:  zap.L().With(zap.String("component", "poll_service")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if bus != nil {
		svc.RegisterHandlers(bus)
	}
	return svc
}

func (s *PollService) RegisterHandlers(bus *commands.Bus) {
	bus.Register(commands.TypePollGet, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.GetPollsCommand)
		if !ok {
			return commands.Result{}, committee_errors.ErrInvalidInput
		}
		polls, err := s.GetPolls(ctx, c)
		return commands.Result{Payload: polls}, err
	}))
	bus.Register(commands.TypePollCreate, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.CreatePollCommand)
		if !ok {
			return commands.Result{}, committee_errors.ErrInvalidInput
		}
		p, err := s.CreatePoll(ctx, c)
		return commands.Result{AggregateID: p.ID, Payload: p}, err
	}))
	bus.Register(commands.TypePollUpdate, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.UpdatePollCommand)
		if !ok {
			return commands.Result{}, committee_errors.ErrInvalidInput
		}
		p, err := s.UpdatePoll(ctx, c)
		return commands.Result{AggregateID: p.ID, Payload: p}, err
	}))
	bus.Register(commands.TypePollDelete, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.DeletePollCommand)
		if !ok {
			return commands.Result{}, committee_errors.ErrInvalidInput
		}
		return commands.Result{AggregateID: c.ID}, s.DeletePoll(ctx, c)
	}))
	for _, action := range []poll.Action{poll.ActionShow, poll.ActionOpen, poll.ActionClose, poll.ActionUnshow, poll.ActionReset} {
		bus.Register(commands.PollActionType(action), commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
			c, ok := cmd.(commands.PollActionCommand)
			if !ok {
				return commands.Result{}, committee_errors.ErrInvalidInput
			}
			p, err := s.ApplyAction(ctx, c)
			return commands.Result{AggregateID: p.ID, Payload: p}, err
		}))
	}
	bus.Register(commands.TypePollVote, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.VotePollCommand)
		if !ok {
			return commands.Result{}, committee_errors.ErrInvalidInput
		}
		return commands.Result{AggregateID: c.ID}, s.Vote(ctx, c)
	}))
	bus.Register(commands.TypePollResult, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.PollResultCommand)
		if !ok {
			return commands.Result{}, committee_errors.ErrInvalidInput
		}
		res, err := s.Results(ctx, c)
		return commands.Result{AggregateID: c.ID, Payload: res}, err
	}))
}

// GetPolls lists the group's polls. Participants below read-write only see polls
// that are live or belong to a published event.
func (s *PollService) GetPolls(ctx context.Context, cmd commands.GetPollsCommand) ([]poll.Poll, error) {
	polls, err := s.polls.GetPolls(ctx, poll.Query{GroupID: cmd.GroupID, EventID: cmd.EventID, ID: cmd.ID})
	if err != nil {
		return nil, err
	}
	if cmd.Access.IsAdmin() {
		return polls, nil
	}

	published := true
	evs, err := s.events.GetEvents(ctx, event.Query{GroupID: cmd.GroupID, IsPublished: &published})
	if err != nil {
		return nil, err
	}
	visible := make(map[string]struct{}, len(evs))
	for _, e := range evs {
		visible[e.ID] = struct{}{}
	}
	out := make([]poll.Poll, 0, len(polls))
	for _, p := range polls {
		if _, ok := visible[p.EventID]; ok || !p.State.IsNull() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *PollService) CreatePoll(ctx context.Context, cmd commands.CreatePollCommand) (poll.Poll, error) {
	var created poll.Poll
	err := cmd.Session.Do(ctx, func(ctx context.Context, g *session.Group) error {
		e, err := s.groupEvent(ctx, g.ID(), cmd.Poll.EventID)
		if err != nil {
			return err
		}
		index := 0
		if cmd.Poll.Index == nil {
			max, err := s.polls.MaxIndex(ctx, e.ID)
			if err != nil {
				return err
			}
			index = max + 1
		}
		p := cmd.Poll.Build(uuid.NewString(), index, e.AutoNumber)
		if err := s.polls.AddPoll(ctx, &p); err != nil {
			return err
		}
		g.Emit(session.AudienceFor(&e, p), events.TypePollAdded, p)
		created = p
		return nil
	})
	return created, err
}

func (s *PollService) UpdatePoll(ctx context.Context, cmd commands.UpdatePollCommand) (poll.Poll, error) {
	var updated poll.Poll
	err := cmd.Session.Do(ctx, func(ctx context.Context, g *session.Group) error {
		p, e, err := s.groupPoll(ctx, g.ID(), cmd.ID)
		if err != nil {
			return err
		}
		next, err := cmd.Changes.Apply(p)
		if err != nil {
			return err
		}
		if err := s.polls.UpdatePoll(ctx, next); err != nil {
			return err
		}
		if g.ActivePollID() == next.ID {
			g.Track(next)
		}
		g.Emit(session.AudienceFor(&e, next), events.TypePollUpdated, next)
		updated = next
		return nil
	})
	return updated, err
}

func (s *PollService) DeletePoll(ctx context.Context, cmd commands.DeletePollCommand) error {
	return cmd.Session.Do(ctx, func(ctx context.Context, g *session.Group) error {
		p, e, err := s.groupPoll(ctx, g.ID(), cmd.ID)
		if err != nil {
			return err
		}
		if p.State == poll.StateOpened {
			return fmt.Errorf("%w: close the poll before deleting it", committee_errors.ErrInvalidTransition)
		}
		n, err := s.polls.PollVoteCount(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := s.polls.DeletePoll(ctx, p.ID); err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("poll deleted with ballots", zap.String("poll_id", p.ID), zap.Int("ballots", n))
		}
		g.Forget(p.ID)
		g.Emit(session.AudienceFor(&e, p), events.TypePollDeleted, p.ID)
		return nil
	})
}

// ApplyAction runs a lifecycle action. When the poll becomes non-null every other
// live poll of the group is unshown in the same transaction; an opened one blocks
// the switch with ErrAnotherPollOpen.
func (s *PollService) ApplyAction(ctx context.Context, cmd commands.PollActionCommand) (poll.Poll, error) {
	var result poll.Poll
	err := cmd.Session.Do(ctx, func(ctx context.Context, g *session.Group) error {
		p, e, err := s.groupPoll(ctx, g.ID(), cmd.ID)
		if err != nil {
			return err
		}
		if cmd.Action.Activates() {
			if err := s.checkNoneOpen(ctx, g.ID(), p.ID); err != nil {
				return err
			}
		}
		tr, err := poll.Apply(p, cmd.Action)
		if err != nil {
			return err
		}

		next := tr.Poll
		var displaced []poll.Poll
		var ballots []poll.Vote
		frozen := false
		err = s.locker.WithGroupLock(ctx, g.ID(), func() error {
			return s.polls.Transaction(ctx, func(tx repository.PollRepository) error {
				if !next.State.IsNull() {
					live, err := tx.GetPolls(ctx, poll.Query{GroupID: g.ID(), NonNull: true})
					if err != nil {
						return err
					}
					for _, other := range live {
						if other.ID == next.ID {
							continue
						}
						if other.State == poll.StateOpened {
							return committee_errors.ErrAnotherPollOpen
						}
						// a displaced closed poll keeps its frozen resultsSummary
						other.State = poll.StateHidden
						if err := tx.UpdatePoll(ctx, other); err != nil {
							return err
						}
						displaced = append(displaced, other)
					}
				}
				if tr.ClearVotes {
					if err := tx.PollClearVotes(ctx, next.ID); err != nil {
						return err
					}
				}
				if cmd.Action == poll.ActionClose && next.ResultsSummary == nil {
					votes, err := tx.PollResults(ctx, next.ID)
					if err != nil {
						return err
					}
					voters := make([]int, len(votes))
					for i, v := range votes {
						voters[i] = v.SAPIN
					}
					li := poll.Indicate(next, s.attendees(ctx, g), voters)
					summary := poll.Summarize(next, votes, li.NumVoters, s.now())
					next.ResultsSummary = &summary
					ballots = votes
					frozen = true
				}
				return tx.UpdatePoll(ctx, next)
			})
		})
		if err != nil {
			return err
		}

		for _, d := range displaced {
			g.Track(d)
			g.Emit(session.AudienceEveryone, events.TypePollUpdated, d)
		}
		g.Track(next)
		audience := session.Widest(session.AudienceFor(&e, p), session.AudienceFor(&e, next))
		g.Emit(audience, events.TypePollUpdated, next)
		if next.IsVoting() {
			s.indicate(ctx, g, next)
		}
		if frozen {
			s.archiveResults(g.ID(), next, ballots)
		}
		result = next
		return nil
	})
	return result, err
}

// Vote records a ballot for the group's open poll and pushes the live indicator.
// The poll state is read from storage since another instance may have opened it.
func (s *PollService) Vote(ctx context.Context, cmd commands.VotePollCommand) error {
	return cmd.Session.Do(ctx, func(ctx context.Context, g *session.Group) error {
		p, _, err := s.groupPoll(ctx, g.ID(), cmd.ID)
		if err != nil {
			return err
		}
		if err := poll.ValidateBallot(p, cmd.Votes); err != nil {
			return err
		}
		status, err := s.currentStatus(ctx, g.ID(), cmd.SAPIN)
		if err != nil {
			return err
		}
		if err := poll.CheckEligible(p, status); err != nil {
			return err
		}
		if err := s.polls.PollVote(ctx, poll.Vote{PollID: p.ID, SAPIN: cmd.SAPIN, Votes: cmd.Votes}); err != nil {
			return err
		}
		g.Track(p)
		s.indicate(ctx, g, p)
		return nil
	})
}

// Ballot is one voter's recorded selection
type Ballot struct {
	SAPIN int    `json:"SAPIN"`
	Name  string `json:"name"`
	Votes []int  `json:"votes"`
}

// PollResults is the payload of poll:result
type PollResults struct {
	ID             string               `json:"id"`
	EventID        string               `json:"eventId"`
	ResultsSummary *poll.ResultsSummary `json:"resultsSummary"`
	Ballots        []Ballot             `json:"ballots,omitempty"`
}

// Results returns the frozen results of a closed poll, with ballots when the record
// policy lets the caller see them.
func (s *PollService) Results(ctx context.Context, cmd commands.PollResultCommand) (PollResults, error) {
	p, e, err := s.groupPoll(ctx, cmd.GroupID, cmd.ID)
	if err != nil {
		return PollResults{}, err
	}
	if !cmd.Access.IsAdmin() && session.AudienceFor(&e, p) != session.AudienceEveryone {
		return PollResults{}, committee_errors.ErrNotFound
	}
	if p.State != poll.StateClosed || p.ResultsSummary == nil {
		return PollResults{}, fmt.Errorf("%w: results are available once the poll is closed", committee_errors.ErrInvalidTransition)
	}

	res := PollResults{ID: p.ID, EventID: p.EventID, ResultsSummary: p.ResultsSummary}
	if !canSeeBallots(p.RecordType, cmd.Access) {
		return res, nil
	}
	votes, err := s.polls.PollResults(ctx, p.ID)
	if err != nil {
		return PollResults{}, err
	}
	sapins := make([]int, len(votes))
	for i, v := range votes {
		sapins[i] = v.SAPIN
	}
	names := make(map[int]string, len(votes))
	if len(sapins) > 0 {
		roster, err := s.members.GetMembers(ctx, cmd.GroupID, sapins)
		if err != nil {
			return PollResults{}, err
		}
		for _, m := range roster {
			names[m.SAPIN] = m.Name
		}
	}
	res.Ballots = make([]Ballot, len(votes))
	for i, v := range votes {
		res.Ballots[i] = Ballot{SAPIN: v.SAPIN, Name: names[v.SAPIN], Votes: v.Votes}
	}
	return res, nil
}

func canSeeBallots(rt poll.RecordType, access member.AccessLevel) bool {
	switch rt {
	case poll.RecordRecorded:
		return true
	case poll.RecordAdminView:
		return access.IsAdmin()
	default:
		return false
	}
}

// Load fills a new group session with its published event and active poll. Polls
// left non-null by an interrupted switch are unshown, keeping the opened one or else
// the most recently updated.
func (s *PollService) Load(ctx context.Context, g *session.Group) error {
	published, err := s.events.GetPublishedEvent(ctx, g.ID())
	switch {
	case err == nil:
		g.SetPublished(published)
	case !errors.Is(err, committee_errors.ErrNotFound):
		return err
	}

	live, err := s.polls.GetPolls(ctx, poll.Query{GroupID: g.ID(), NonNull: true})
	if err != nil {
		return err
	}
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		oi, oj := live[i].State == poll.StateOpened, live[j].State == poll.StateOpened
		if oi != oj {
			return oi
		}
		return live[i].UpdatedAt.After(live[j].UpdatedAt)
	})
	keep, stale := live[0], live[1:]
	if len(stale) > 0 {
		err := s.locker.WithGroupLock(ctx, g.ID(), func() error {
			return s.polls.Transaction(ctx, func(tx repository.PollRepository) error {
				for i := range stale {
					stale[i].State = poll.StateHidden
					if err := tx.UpdatePoll(ctx, stale[i]); err != nil {
						return err
					}
				}
				return nil
			})
		})
		if err != nil {
			return err
		}
		for _, p := range stale {
			g.Emit(session.AudienceEveryone, events.TypePollUpdated, p)
		}
		s.logger.Warn("reconciled group with several live polls",
			zap.String("group_id", g.ID()), zap.String("kept", keep.ID), zap.Int("unshown", len(stale)))
	}
	g.Track(keep)
	return nil
}

func (s *PollService) Joined(ctx context.Context, g *session.Group, p session.Participant) error {
	if s.presence != nil {
		if err := s.presence.Join(ctx, g.ID(), p.ClientID, poll.Attendee{SAPIN: p.SAPIN, Status: p.Status}); err != nil {
			s.logger.Warn("failed to record presence", zap.String("group_id", g.ID()), zap.Error(err))
		}
	}
	s.refreshIndicator(ctx, g)
	return nil
}

func (s *PollService) Left(ctx context.Context, g *session.Group, p session.Participant) error {
	if s.presence != nil {
		if err := s.presence.Leave(ctx, g.ID(), p.ClientID); err != nil {
			s.logger.Warn("failed to clear presence", zap.String("group_id", g.ID()), zap.Error(err))
		}
	}
	s.refreshIndicator(ctx, g)
	return nil
}

// SyncPoll reloads pollID after another instance changed it, keeping the cached
// active poll in line with storage. Nothing is emitted.
func (s *PollService) SyncPoll(ctx context.Context, g *session.Group, pollID string) error {
	p, err := s.polls.GetPoll(ctx, pollID)
	if errors.Is(err, committee_errors.ErrNotFound) {
		g.Forget(pollID)
		return nil
	}
	if err != nil {
		return err
	}
	g.Track(p)
	return nil
}

func (s *PollService) refreshIndicator(ctx context.Context, g *session.Group) {
	cur, ok := g.Active()
	if !ok {
		return
	}
	if err := s.SyncPoll(ctx, g, cur.ID); err != nil {
		s.logger.Warn("failed to reload active poll", zap.String("poll_id", cur.ID), zap.Error(err))
		return
	}
	if p, ok := g.Active(); ok && p.IsVoting() {
		s.indicate(ctx, g, p)
	}
}

// indicate queues the live indicator of p. It runs after the change is committed,
// so a failure is logged and the change is still broadcast.
func (s *PollService) indicate(ctx context.Context, g *session.Group, p poll.Poll) {
	voters, err := s.polls.PollVoters(ctx, p.ID)
	if err != nil {
		s.logger.Warn("failed to compute live indicator", zap.String("poll_id", p.ID), zap.Error(err))
		return
	}
	g.Emit(session.AudienceEveryone, events.TypePollVoted, poll.Indicate(p, s.attendees(ctx, g), voters))
}

// attendees merges the local participants with those connected to other instances.
func (s *PollService) attendees(ctx context.Context, g *session.Group) []poll.Attendee {
	local := g.Attendees()
	if s.presence == nil {
		return local
	}
	remote, err := s.presence.Attendees(ctx, g.ID())
	if err != nil {
		s.logger.Warn("failed to read presence", zap.String("group_id", g.ID()), zap.Error(err))
		return local
	}
	seen := make(map[int]poll.Attendee, len(local)+len(remote))
	for _, a := range remote {
		seen[a.SAPIN] = a
	}
	for _, a := range local {
		seen[a.SAPIN] = a
	}
	out := make([]poll.Attendee, 0, len(seen))
	for _, a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SAPIN < out[j].SAPIN })
	return out
}

// checkNoneOpen reads storage so that polls opened through other instances count.
func (s *PollService) checkNoneOpen(ctx context.Context, groupID, pollID string) error {
	live, err := s.polls.GetPolls(ctx, poll.Query{GroupID: groupID, NonNull: true})
	if err != nil {
		return err
	}
	for _, other := range live {
		if other.ID != pollID && other.State == poll.StateOpened {
			return committee_errors.ErrAnotherPollOpen
		}
	}
	return nil
}

// currentStatus reads the roster at vote time; members missing from the roster have no status.
func (s *PollService) currentStatus(ctx context.Context, groupID string, sapin int) (member.Status, error) {
	m, err := s.members.GetMember(ctx, groupID, sapin)
	if err != nil {
		if errors.Is(err, committee_errors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return m.Status, nil
}

func (s *PollService) groupEvent(ctx context.Context, groupID, eventID string) (event.Event, error) {
	e, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return event.Event{}, err
	}
	if e.GroupID != groupID {
		return event.Event{}, committee_errors.ErrNotFound
	}
	return e, nil
}

func (s *PollService) groupPoll(ctx context.Context, groupID, pollID string) (poll.Poll, event.Event, error) {
	p, err := s.polls.GetPoll(ctx, pollID)
	if err != nil {
		return poll.Poll{}, event.Event{}, err
	}
	e, err := s.groupEvent(ctx, groupID, p.EventID)
	if err != nil {
		return poll.Poll{}, event.Event{}, err
	}
	return p, e, nil
}

func (s *PollService) archiveResults(groupID string, p poll.Poll, ballots []poll.Vote) {
	if s.archive == nil {
		return
	}
	s.archiving.Add(1)
	go func() {
		defer s.archiving.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := s.archive.Archive(ctx, groupID, p, ballots); err != nil {
			s.logger.Error("failed to archive poll results", zap.String("poll_id", p.ID), zap.Error(err))
		}
	}()
}

// WaitArchived blocks until pending result uploads finish.
func (s *PollService) WaitArchived() {
	s.archiving.Wait()
}
