package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	committee_errors "committee-live/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// RateLimits bounds the operations one socket may issue
type RateLimits struct {
	PerSecond float64
	Burst     int
}

var DefaultRateLimits = RateLimits{PerSecond: 5, Burst: 10}

// Client represents a single WebSocket connection bound to one group
type Client struct {
	ID      string
	GroupID string
	SAPIN   int

	conn         *websocket.Conn
	send         chan []byte
	rooms        map[string]bool
	routes       map[string]Dispatch
	limiter      *rate.Limiter
	lastActivity atomic.Int64
	logger       *Logger
	mu           sync.RWMutex
}

func NewClient(conn *websocket.Conn, groupID string, sapin int, limits RateLimits, logger *Logger) *Client {
	c := &Client{
		ID:      uuid.New().String(),
		GroupID: groupID,
		SAPIN:   sapin,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		rooms:   make(map[string]bool),
		limiter: rate.NewLimiter(rate.Limit(limits.PerSecond), limits.Burst),
		logger:  logger,
	}
	c.touch()
	return c
}

// Bind installs the connection's operation table
func (c *Client) Bind(routes map[string]Dispatch) {
	c.mu.Lock()
	c.routes = routes
	c.mu.Unlock()
}

func (c *Client) joined(room string) {
	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()
}

func (c *Client) left(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

// Rooms returns a copy of all joined rooms
func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// SendMessage queues a frame for the client (non-blocking)
func (c *Client) SendMessage(msg []byte) {
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("send buffer full, frame dropped", c)
	}
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) idle() time.Duration {
	return time.Since(time.Unix(0, c.lastActivity.Load()))
}

// ReadPump handles inbound operations until the connection fails or ctx ends.
// Requests are served in order; each answers with exactly one ack.
func (c *Client) ReadPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("websocket unexpected close", c, err)
			}
			return
		}
		c.touch()
		c.reply(c.handleMessage(ctx, message))
	}
}

func (c *Client) handleMessage(ctx context.Context, message []byte) (ack Ack) {
	var req Request
	if err := json.Unmarshal(message, &req); err != nil {
		return errorAck("", fmt.Errorf("%w: malformed request: %v", committee_errors.ErrInvalidInput, err))
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("operation panicked", c, fmt.Errorf("%v", r), zap.String("op", req.Op))
			ack = errorAck(req.ID, fmt.Errorf("panic in %s", req.Op))
		}
	}()

	if !c.limiter.Allow() {
		c.logger.Warn("rate limit exceeded", c, zap.String("op", req.Op))
		return errorAck(req.ID, fmt.Errorf("%w: slow down", committee_errors.ErrRateLimited))
	}

	c.mu.RLock()
	handle, ok := c.routes[req.Op]
	c.mu.RUnlock()
	if !ok {
		return errorAck(req.ID, fmt.Errorf("%w: unknown operation %q", committee_errors.ErrInvalidInput, req.Op))
	}

	data, err := handle(ctx, req.Data)
	if err != nil {
		if committee_errors.Code(err) == committee_errors.CodeInternal {
			c.logger.Error("operation failed", c, err, zap.String("op", req.Op))
		}
		return errorAck(req.ID, err)
	}
	return okAck(req.ID, data)
}

func (c *Client) reply(ack Ack) {
	payload, err := json.Marshal(ack)
	if err != nil {
		c.logger.Error("failed to encode ack", c, err)
		payload, _ = json.Marshal(errorAck(ack.ID, err))
	}
	c.SendMessage(payload)
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if c.idle() > pongWait*2 {
				c.logger.Info("client idle timeout", c)
				return
			}
		}
	}
}
