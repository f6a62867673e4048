package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"committee-live/config"
	"committee-live/internal/commands"
	"committee-live/internal/domain/poll"
	"committee-live/internal/events"
	"committee-live/internal/handler"
	"committee-live/internal/proxy"
	"committee-live/internal/repository"
	"committee-live/internal/server"
	"committee-live/internal/services"
	"committee-live/internal/session"
	"committee-live/internal/testutil"
	"committee-live/internal/websocket"
	"committee-live/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLinker struct{}

func (stubLinker) URL(_ context.Context, groupID, eventID, pollID string) (string, error) {
	return "https://archive.example/" + groupID + "/" + eventID + "/" + pollID, nil
}

type fixture struct {
	srv    *server.Server
	tokens *services.TokenService
	closed poll.Poll
	hidden poll.Poll
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{AppMode: server.TestMode, JWTSecret: "server-test", JWTExpiryMin: 10, CORSOrigins: []string{"*"}}

	db := testutil.OpenDB(t)
	testutil.SeedRoster(t, db)
	ev := testutil.SeedEvent(t, db, true)

	polls := repository.NewPollRepository(db)
	eventRepo := repository.NewEventRepository(db)
	members := repository.NewMemberRepository(db)
	bus := commands.NewBus(proxy.NewAccessControl())
	pollSvc := services.NewPollService(polls, eventRepo, members, bus)
	tokens := services.NewTokenService(cfg)

	ctx := context.Background()
	closed := poll.Create{EventID: ev.ID, Type: poll.TypeStrawpoll, Title: "Venue", Options: []string{"Berlin", "Vancouver"},
		RecordType: poll.RecordRecorded}.Build(uuid.NewString(), 1, true)
	closed.State = poll.StateClosed
	closed.ResultsSummary = &poll.ResultsSummary{Counts: []int{1, 0}, NumVotes: 1, NumVoters: 2, ClosedAt: time.Now().UTC()}
	require.NoError(t, polls.AddPoll(ctx, &closed))
	require.NoError(t, polls.PollVote(ctx, poll.Vote{PollID: closed.ID, SAPIN: testutil.VoterSAPIN, Votes: []int{0}}))

	hidden := poll.Create{EventID: ev.ID, Type: poll.TypeStrawpoll, Title: "Draft", Options: []string{"a", "b"}}.Build(uuid.NewString(), 2, true)
	require.NoError(t, polls.AddPoll(ctx, &hidden))

	hub := websocket.NewHub()
	registry := session.NewRegistry(events.NewLocalPublisher(hub), pollSvc)
	t.Cleanup(registry.Shutdown)

	srv := server.New(cfg, logger.NewNop())
	srv.SetupRoutes(&server.Handlers{
		DB:        db,
		Registry:  registry,
		WebSocket: websocket.NewHandler(tokens, websocket.NewGroupAuthorizer(members), registry, websocket.NewRouter(bus), hub, websocket.DefaultRateLimits),
		Results:   handler.NewResultsHandler(pollSvc, members, stubLinker{}),
		Tokens:    tokens,
	})
	return &fixture{srv: srv, tokens: tokens, closed: closed, hidden: hidden}
}

func (f *fixture) get(t *testing.T, path string, sapin int) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sapin > 0 {
		token, _, err := f.tokens.IssueAccessToken(sapin, "member")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func resultsPath(pollID string) string {
	return "/v1/groups/" + testutil.GroupID + "/polls/" + pollID + "/results"
}

func TestPingAndHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/ping", 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pong")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = f.get(t, "/health", 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestResultsEndpoint(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		sapin  int
		status int
	}{
		{name: "no token", path: resultsPath(f.closed.ID), status: http.StatusUnauthorized},
		{name: "no access", path: resultsPath(f.closed.ID), sapin: testutil.ObserverSAPIN, status: http.StatusForbidden},
		{name: "bad poll id", path: resultsPath("nope"), sapin: testutil.VoterSAPIN, status: http.StatusBadRequest},
		{name: "hidden poll", path: resultsPath(f.hidden.ID), sapin: testutil.VoterSAPIN, status: http.StatusNotFound},
		{name: "not closed", path: resultsPath(f.hidden.ID), sapin: testutil.AdminSAPIN, status: http.StatusBadRequest},
		{name: "closed poll", path: resultsPath(f.closed.ID), sapin: testutil.VoterSAPIN, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.path, tt.sapin)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestResultsEndpointBody(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, resultsPath(f.closed.ID), testutil.VoterSAPIN)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			ID             string              `json:"id"`
			ResultsSummary poll.ResultsSummary `json:"resultsSummary"`
			Ballots        []services.Ballot   `json:"ballots"`
			ArchiveURL     string              `json:"archiveUrl"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, f.closed.ID, body.Data.ID)
	assert.Equal(t, []int{1, 0}, body.Data.ResultsSummary.Counts)
	require.Len(t, body.Data.Ballots, 1)
	assert.Equal(t, testutil.VoterSAPIN, body.Data.Ballots[0].SAPIN)
	assert.Equal(t, "Voter One", body.Data.Ballots[0].Name)
	assert.Contains(t, body.Data.ArchiveURL, f.closed.ID)
}
