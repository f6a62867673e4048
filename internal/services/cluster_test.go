package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"committee-live/internal/commands"
	"committee-live/internal/domain/event"
	"committee-live/internal/domain/poll"
	"committee-live/internal/events"
	"committee-live/internal/proxy"
	"committee-live/internal/repository"
	"committee-live/internal/services"
	"committee-live/internal/session"
	"committee-live/internal/testutil"
	committee_errors "committee-live/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryPresence struct {
	mu     sync.Mutex
	groups map[string]map[string]poll.Attendee
}

func newMemoryPresence() *memoryPresence {
	return &memoryPresence{groups: make(map[string]map[string]poll.Attendee)}
}

func (m *memoryPresence) Join(_ context.Context, groupID, clientID string, a poll.Attendee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.groups[groupID] == nil {
		m.groups[groupID] = make(map[string]poll.Attendee)
	}
	m.groups[groupID][clientID] = a
	return nil
}

func (m *memoryPresence) Leave(_ context.Context, groupID, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups[groupID], clientID)
	return nil
}

func (m *memoryPresence) Attendees(_ context.Context, groupID string) ([]poll.Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]poll.Attendee, 0, len(m.groups[groupID]))
	for _, a := range m.groups[groupID] {
		out = append(out, a)
	}
	return out, nil
}

// instance is one server process sharing the database with its peers.
type instance struct {
	t        *testing.T
	pub      *testutil.RecordingPublisher
	bus      *commands.Bus
	polls    repository.PollRepository
	members  repository.MemberRepository
	registry *session.Registry
	sync     *services.SessionSync
	event    event.Event
}

func newInstance(t *testing.T, db *gorm.DB, polls repository.PollRepository, ev event.Event, presence services.Presence) *instance {
	t.Helper()
	in := &instance{
		t:       t,
		pub:     &testutil.RecordingPublisher{},
		bus:     commands.NewBus(proxy.NewAccessControl()),
		polls:   polls,
		members: repository.NewMemberRepository(db),
		event:   ev,
	}
	eventRepo := repository.NewEventRepository(db)
	var opts []services.PollOption
	if presence != nil {
		opts = append(opts, services.WithPresence(presence))
	}
	pollSvc := services.NewPollService(polls, eventRepo, in.members, in.bus, opts...)
	eventSvc := services.NewEventService(eventRepo, in.bus)
	in.registry = session.NewRegistry(in.pub, pollSvc)
	in.sync = services.NewSessionSync(in.registry, pollSvc, eventSvc)
	t.Cleanup(in.registry.Shutdown)
	return in
}

func (in *instance) join(sapin int) commands.Actor {
	in.t.Helper()
	m, err := in.members.GetMember(context.Background(), testutil.GroupID, sapin)
	require.NoError(in.t, err)
	coord, err := in.registry.Acquire(context.Background(), testutil.GroupID, session.Participant{
		ClientID: uuid.NewString(),
		SAPIN:    m.SAPIN,
		Name:     m.Name,
		Status:   m.Status,
		Access:   m.AccessLevel,
	})
	require.NoError(in.t, err)
	return commands.Actor{GroupID: testutil.GroupID, SAPIN: m.SAPIN, Name: m.Name, Access: m.AccessLevel, Session: coord}
}

func (in *instance) create(admin commands.Actor, title string) poll.Poll {
	in.t.Helper()
	c := strawpoll(title, "yes", "no")
	c.EventID = in.event.ID
	res, err := in.bus.Execute(context.Background(), commands.CreatePollCommand{Actor: admin, Poll: c})
	require.NoError(in.t, err)
	return res.Payload.(poll.Poll)
}

func (in *instance) action(admin commands.Actor, id string, a poll.Action) (poll.Poll, error) {
	res, err := in.bus.Execute(context.Background(), commands.PollActionCommand{Actor: admin, ID: id, Action: a})
	if err != nil {
		return poll.Poll{}, err
	}
	return res.Payload.(poll.Poll), nil
}

func (in *instance) vote(actor commands.Actor, id string, votes ...int) error {
	_, err := in.bus.Execute(context.Background(), commands.VotePollCommand{Actor: actor, ID: id, Votes: votes})
	return err
}

func (in *instance) coordinator() *session.Coordinator {
	in.t.Helper()
	coord, ok := in.registry.Lookup(testutil.GroupID)
	require.True(in.t, ok)
	return coord
}

// relay delivers what from published to to, the way the redis bridge does.
func relay(t *testing.T, from, to *instance) {
	t.Helper()
	for _, s := range from.pub.All() {
		payload, err := s.Env.Encode()
		require.NoError(t, err)
		to.sync.Sync(context.Background(), s.Room, payload)
	}
	from.pub.Reset()
}

func TestVoteOnPollOpenedByAnotherInstance(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.SeedRoster(t, db)
	ev := testutil.SeedEvent(t, db, true)
	presence := newMemoryPresence()
	one := newInstance(t, db, repository.NewPollRepository(db), ev, presence)
	two := newInstance(t, db, repository.NewPollRepository(db), ev, presence)

	voter := one.join(testutil.VoterSAPIN)
	adminTwo := two.join(testutil.AdminSAPIN)

	a := two.create(adminTwo, "A")
	_, err := two.action(adminTwo, a.ID, poll.ActionOpen)
	require.NoError(t, err)

	require.NoError(t, one.vote(voter, a.ID, 0))
	voted := one.pub.OfType(events.TypePollVoted)
	require.NotEmpty(t, voted)
	li := voted[len(voted)-1].Env.Data.(poll.LiveIndicator)
	assert.Equal(t, poll.LiveIndicator{PollID: a.ID, NumMembers: 2, NumVoters: 2, NumVotes: 1}, li)
	assert.True(t, one.coordinator().HasActive())

	_, err = two.action(adminTwo, a.ID, poll.ActionClose)
	require.NoError(t, err)

	// one still caches A as opened; opening B must consult storage instead
	adminOne := one.join(testutil.AdminSAPIN)
	b := one.create(adminOne, "B")
	opened, err := one.action(adminOne, b.ID, poll.ActionOpen)
	require.NoError(t, err)
	assert.Equal(t, poll.StateOpened, opened.State)

	storedA, err := one.polls.GetPoll(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, poll.StateHidden, storedA.State)
	require.NotNil(t, storedA.ResultsSummary)
	assert.Equal(t, []int{1, 0}, storedA.ResultsSummary.Counts)

	_, err = two.action(adminTwo, a.ID, poll.ActionShow)
	assert.ErrorIs(t, err, committee_errors.ErrAnotherPollOpen)

	// closed through two while one still caches B as opened
	_, err = two.action(adminTwo, b.ID, poll.ActionClose)
	require.NoError(t, err)
	err = one.vote(voter, b.ID, 1)
	assert.ErrorIs(t, err, committee_errors.ErrInvalidTransition)
}

func TestRelayedIndicationsRefreshSession(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.SeedRoster(t, db)
	ev := testutil.SeedEvent(t, db, true)
	one := newInstance(t, db, repository.NewPollRepository(db), ev, nil)
	two := newInstance(t, db, repository.NewPollRepository(db), ev, nil)

	adminOne := one.join(testutil.AdminSAPIN)
	two.join(testutil.VoterSAPIN)

	p := one.create(adminOne, "Relayed")
	_, err := one.action(adminOne, p.ID, poll.ActionOpen)
	require.NoError(t, err)
	assert.False(t, two.coordinator().HasActive())
	relay(t, one, two)
	assert.True(t, two.coordinator().HasActive())

	_, err = one.action(adminOne, p.ID, poll.ActionClose)
	require.NoError(t, err)
	_, err = one.action(adminOne, p.ID, poll.ActionUnshow)
	require.NoError(t, err)
	assert.True(t, two.coordinator().HasActive())
	relay(t, one, two)
	assert.False(t, two.coordinator().HasActive())

	res, err := one.bus.Execute(context.Background(), commands.CreateEventCommand{Actor: adminOne, Event: event.Create{
		Name:        "Interim",
		Datetime:    ev.Datetime,
		IsPublished: true,
	}})
	require.NoError(t, err)
	interim := res.Payload.(event.Event)
	relay(t, one, two)
	err = two.coordinator().Do(context.Background(), func(_ context.Context, g *session.Group) error {
		assert.Equal(t, interim.ID, g.PublishedEventID())
		return nil
	})
	require.NoError(t, err)

	_, err = one.bus.Execute(context.Background(), commands.DeletePollCommand{Actor: adminOne, ID: p.ID})
	require.NoError(t, err)
	relay(t, one, two)
	assert.False(t, two.coordinator().HasActive())
}

// flakyVoters fails PollVoters on demand.
type flakyVoters struct {
	repository.PollRepository
	fail atomic.Bool
}

func (r *flakyVoters) PollVoters(ctx context.Context, pollID string) ([]int, error) {
	if r.fail.Load() {
		return nil, errors.New("voters unavailable")
	}
	return r.PollRepository.PollVoters(ctx, pollID)
}

func TestIndicatorFailureStillBroadcastsChange(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.SeedRoster(t, db)
	ev := testutil.SeedEvent(t, db, true)
	polls := &flakyVoters{PollRepository: repository.NewPollRepository(db)}
	in := newInstance(t, db, polls, ev, nil)

	admin := in.join(testutil.AdminSAPIN)
	voter := in.join(testutil.VoterSAPIN)
	p := in.create(admin, "Flaky")
	in.pub.Reset()
	polls.fail.Store(true)

	opened, err := in.action(admin, p.ID, poll.ActionOpen)
	require.NoError(t, err)
	assert.Equal(t, poll.StateOpened, opened.State)
	updated := in.pub.OfType(events.TypePollUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, poll.StateOpened, updated[0].Env.Data.(poll.Poll).State)
	assert.Empty(t, in.pub.OfType(events.TypePollVoted))

	require.NoError(t, in.vote(voter, p.ID, 0))
	n, err := polls.PollVoteCount(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, in.pub.OfType(events.TypePollVoted))

	polls.fail.Store(false)
	require.NoError(t, in.vote(voter, p.ID, 1))
	voted := in.pub.OfType(events.TypePollVoted)
	require.Len(t, voted, 1)
	assert.Equal(t, 1, voted[0].Env.Data.(poll.LiveIndicator).NumVotes)
}
