package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"committee-live/config"
	"committee-live/internal/commands"
	"committee-live/internal/domain/event"
	"committee-live/internal/domain/member"
	"committee-live/internal/domain/poll"
	"committee-live/internal/events"
	"committee-live/internal/proxy"
	"committee-live/internal/repository"
	"committee-live/internal/services"
	"committee-live/internal/session"
	"committee-live/internal/testutil"
	committee_errors "committee-live/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateway struct {
	t      *testing.T
	url    string
	tokens *services.TokenService
	hub    *Hub
	event  event.Event
	nextID int
}

type frame struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *AckError       `json:"error"`
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	testutil.SeedRoster(t, db)
	ev := testutil.SeedEvent(t, db, true)

	polls := repository.NewPollRepository(db)
	eventRepo := repository.NewEventRepository(db)
	members := repository.NewMemberRepository(db)
	bus := commands.NewBus(proxy.NewAccessControl())
	pollSvc := services.NewPollService(polls, eventRepo, members, bus)
	services.NewEventService(eventRepo, bus)

	hub := NewHub()
	registry := session.NewRegistry(events.NewLocalPublisher(hub), pollSvc)
	tokens := services.NewTokenService(&config.Config{JWTSecret: "gateway-test", JWTExpiryMin: 10})
	handler := NewHandler(tokens, NewGroupAuthorizer(members), registry, NewRouter(bus), hub, RateLimits{PerSecond: 100, Burst: 100})

	engine := gin.New()
	engine.GET("/v1/ws", handler.Connect)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	t.Cleanup(registry.Shutdown)

	return &gateway{
		t:      t,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws",
		tokens: tokens,
		hub:    hub,
		event:  ev,
	}
}

func (g *gateway) token(sapin int) string {
	g.t.Helper()
	token, _, err := g.tokens.IssueAccessToken(sapin, fmt.Sprintf("member %d", sapin))
	require.NoError(g.t, err)
	return token
}

func (g *gateway) dialRaw(token, groupID string) (*websocket.Conn, *http.Response, error) {
	return websocket.DefaultDialer.Dial(fmt.Sprintf("%s?groupId=%s&token=%s", g.url, groupID, token), nil)
}

func (g *gateway) dial(sapin int) *websocket.Conn {
	g.t.Helper()
	conn, _, err := g.dialRaw(g.token(sapin), testutil.GroupID)
	require.NoError(g.t, err)
	g.t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (g *gateway) send(conn *websocket.Conn, op string, data any) string {
	g.t.Helper()
	g.nextID++
	id := fmt.Sprintf("r%d", g.nextID)
	raw, err := json.Marshal(data)
	require.NoError(g.t, err)
	require.NoError(g.t, conn.WriteJSON(Request{ID: id, Op: op, Data: raw}))
	return id
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// awaitAck skips indications until the ack for id arrives.
func awaitAck(t *testing.T, conn *websocket.Conn, id string) frame {
	t.Helper()
	for {
		f := read(t, conn)
		if f.Type == ackType && f.ID == id {
			return f
		}
	}
}

// awaitIndication skips frames until match accepts one of type typ.
func awaitIndication(t *testing.T, conn *websocket.Conn, typ string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	for {
		f := read(t, conn)
		if f.Type == typ && (match == nil || match(f.Data)) {
			return f.Data
		}
	}
}

func (g *gateway) call(conn *websocket.Conn, op string, data any) frame {
	g.t.Helper()
	return awaitAck(g.t, conn, g.send(conn, op, data))
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	g := newGateway(t)

	tests := []struct {
		name   string
		token  string
		group  string
		status int
	}{
		{name: "missing token", token: "", group: testutil.GroupID, status: http.StatusUnauthorized},
		{name: "forged token", token: "not-a-jwt", group: testutil.GroupID, status: http.StatusUnauthorized},
		{name: "missing group", token: g.token(testutil.VoterSAPIN), group: "", status: http.StatusBadRequest},
		{name: "no access", token: g.token(testutil.ObserverSAPIN), group: testutil.GroupID, status: http.StatusForbidden},
		{name: "not on roster", token: g.token(testutil.OutsiderSAPIN), group: testutil.GroupID, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := g.dialRaw(tt.token, tt.group)
			if conn != nil {
				_ = conn.Close()
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAdminRoomMembership(t *testing.T) {
	g := newGateway(t)
	g.dial(testutil.AdminSAPIN)
	g.dial(testutil.VoterSAPIN)

	assert.Eventually(t, func() bool {
		return g.hub.RoomSize(events.GroupRoom(testutil.GroupID)) == 2 &&
			g.hub.RoomSize(events.AdminRoom(testutil.GroupID)) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, g.hub.ClientCount())
}

func TestMalformedAndUnknownRequests(t *testing.T) {
	g := newGateway(t)
	conn := g.dial(testutil.VoterSAPIN)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	f := awaitAck(t, conn, "")
	assert.False(t, f.OK)
	require.NotNil(t, f.Error)
	assert.Equal(t, committee_errors.CodeValidation, f.Error.Code)

	f = g.call(conn, "poll:explode", nil)
	assert.False(t, f.OK)
	assert.Equal(t, committee_errors.CodeValidation, f.Error.Code)
	assert.Contains(t, f.Error.Message, "poll:explode")

	f = g.call(conn, "poll:vote", map[string]any{"id": "x", "votes": []int{0}, "SAPIN": 1})
	assert.False(t, f.OK)
	assert.Equal(t, committee_errors.CodeValidation, f.Error.Code)
}

func TestReadOnlyMemberIsForbiddenToCreate(t *testing.T) {
	g := newGateway(t)
	conn := g.dial(testutil.VoterSAPIN)

	f := g.call(conn, "poll:create", poll.Create{EventID: g.event.ID, Type: poll.TypeStrawpoll, Options: []string{"a", "b"}})
	assert.False(t, f.OK)
	require.NotNil(t, f.Error)
	assert.Equal(t, committee_errors.CodeForbidden, f.Error.Code)

	f = g.call(conn, "poll:get", map[string]string{"eventId": g.event.ID})
	assert.True(t, f.OK)
}

func TestLivePollOverSockets(t *testing.T) {
	g := newGateway(t)
	admin := g.dial(testutil.AdminSAPIN)
	voter := g.dial(testutil.VoterSAPIN)

	f := g.call(admin, "poll:create", poll.Create{
		EventID: g.event.ID,
		Type:    poll.TypeStrawpoll,
		Title:   "Next meeting venue",
		Options: []string{"Berlin", "Vancouver"},
	})
	require.True(t, f.OK, "create failed: %+v", f.Error)
	var created poll.Poll
	require.NoError(t, json.Unmarshal(f.Data, &created))
	assert.Equal(t, poll.StateHidden, created.State)

	f = g.call(admin, "poll:show", created.ID)
	require.True(t, f.OK, "show failed: %+v", f.Error)
	f = g.call(admin, "poll:open", map[string]string{"id": created.ID})
	require.True(t, f.OK, "open failed: %+v", f.Error)

	awaitIndication(t, voter, events.TypePollUpdated, func(data json.RawMessage) bool {
		var p poll.Poll
		return json.Unmarshal(data, &p) == nil && p.ID == created.ID && p.State == poll.StateOpened
	})

	f = g.call(voter, "poll:vote", map[string]any{"id": created.ID, "votes": []int{1}})
	require.True(t, f.OK, "vote failed: %+v", f.Error)

	raw := awaitIndication(t, admin, events.TypePollVoted, func(data json.RawMessage) bool {
		var li poll.LiveIndicator
		return json.Unmarshal(data, &li) == nil && li.NumVotes == 1
	})
	var li poll.LiveIndicator
	require.NoError(t, json.Unmarshal(raw, &li))
	assert.Equal(t, created.ID, li.PollID)
	assert.Equal(t, 2, li.NumMembers)

	f = g.call(voter, "poll:vote", map[string]any{"id": created.ID, "votes": []int{5}})
	assert.False(t, f.OK)
	assert.Equal(t, committee_errors.CodeValidation, f.Error.Code)

	f = g.call(admin, "poll:close", created.ID)
	require.True(t, f.OK, "close failed: %+v", f.Error)

	f = g.call(voter, "poll:result", created.ID)
	require.True(t, f.OK, "result failed: %+v", f.Error)
	var res services.PollResults
	require.NoError(t, json.Unmarshal(f.Data, &res))
	require.NotNil(t, res.ResultsSummary)
	assert.Equal(t, []int{0, 1}, res.ResultsSummary.Counts)
}

func TestDecodeID(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{name: "bare string", data: `"abc"`, want: "abc"},
		{name: "object", data: `{"id":"abc"}`, want: "abc"},
		{name: "unknown field", data: `{"id":"abc","extra":1}`, wantErr: true},
		{name: "empty", data: ``, wantErr: true},
		{name: "number", data: `42`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeID(json.RawMessage(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, committee_errors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouterBindForbidsAboveAccess(t *testing.T) {
	router := NewRouter(commands.NewBus())
	assert.Len(t, router.Ops(), 14)

	table := router.Bind(commands.Actor{GroupID: testutil.GroupID, SAPIN: testutil.VoterSAPIN, Access: member.AccessReadOnly})
	for _, op := range []string{"poll:create", "poll:update", "poll:delete", "poll:open", "poll:reset", "event:create", "event:update"} {
		_, err := table[op](context.Background(), json.RawMessage(`{}`))
		assert.ErrorIs(t, err, committee_errors.ErrForbidden, op)
	}
}
