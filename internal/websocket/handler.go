package websocket

import (
	"context"
	"net/http"
	"strings"

	"committee-live/internal/commands"
	"committee-live/internal/services"
	"committee-live/internal/session"
	"committee-live/internal/transport/httpdto"
	committee_errors "committee-live/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TokenParser verifies bearer tokens
type TokenParser interface {
	ParseAccessToken(token string) (services.AccessClaims, error)
}

type Handler struct {
	tokens     TokenParser
	authorizer *GroupAuthorizer
	registry   *session.Registry
	router     *Router
	hub        *Hub
	limits     RateLimits
	upgrader   websocket.Upgrader
	logger     *Logger
}

func NewHandler(tokens TokenParser, authorizer *GroupAuthorizer, registry *session.Registry, router *Router, hub *Hub, limits RateLimits) *Handler {
	return &Handler{
		tokens:     tokens,
		authorizer: authorizer,
		registry:   registry,
		router:     router,
		hub:        hub,
		limits:     limits,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: NewLogger(),
	}
}

// Connect authenticates the caller, admits it to the group and serves the socket
// until it disconnects.
func (h *Handler) Connect(c *gin.Context) {
	claims, err := h.tokens.ParseAccessToken(extractToken(c))
	if err != nil {
		abort(c, err)
		return
	}
	groupID := strings.TrimSpace(c.Query("groupId"))
	m, err := h.authorizer.Admit(c.Request.Context(), groupID, claims.SAPIN)
	if err != nil {
		abort(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already answered the request
		return
	}

	client := NewClient(conn, groupID, m.SAPIN, h.limits, h.logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	for _, room := range h.authorizer.Rooms(groupID, m) {
		h.hub.Join(client, room)
	}
	go client.WritePump()

	name := m.Name
	if name == "" {
		name = claims.Name
	}
	coord, err := h.registry.Acquire(ctx, groupID, session.Participant{
		ClientID: client.ID,
		SAPIN:    m.SAPIN,
		Name:     name,
		Status:   m.Status,
		Access:   m.AccessLevel,
	})
	if err != nil {
		h.logger.Error("failed to join group session", client, err)
		h.hub.Unregister(client)
		return
	}
	client.Bind(h.router.Bind(commands.Actor{
		GroupID: groupID,
		SAPIN:   m.SAPIN,
		Name:    name,
		Access:  m.AccessLevel,
		Session: coord,
	}))
	h.logger.Info("connected", client, zap.Stringer("access", m.AccessLevel))

	client.ReadPump(ctx)

	h.hub.Unregister(client)
	h.registry.Release(groupID, client.ID)
	h.logger.Info("disconnected", client)
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(committee_errors.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), committee_errors.Code(err)))
}

func extractToken(c *gin.Context) string {
	// Check query parameter
	token := c.Query("token")
	if token != "" {
		return token
	}

	// Check Authorization header
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	return ""
}
