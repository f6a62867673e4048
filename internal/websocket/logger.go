package websocket

import (
	"go.uber.org/zap"
)

// Logger provides structured logging for WebSocket events
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new WebSocket logger
func NewLogger() *Logger {
	return &Logger{
		logger: zap.L().With(zap.String("component", "websocket")),
	}
}

func (l *Logger) fields(event string, c *Client, extra []zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("event", event),
		zap.String("group_id", c.GroupID),
		zap.Int("sapin", c.SAPIN),
		zap.String("client_id", c.ID),
	}, extra...)
}

// Info logs info level event
func (l *Logger) Info(event string, c *Client, fields ...zap.Field) {
	l.logger.Info("websocket_event", l.fields(event, c, fields)...)
}

// Error logs error level event
func (l *Logger) Error(event string, c *Client, err error, fields ...zap.Field) {
	l.logger.Error("websocket_error", l.fields(event, c, append(fields, zap.Error(err)))...)
}

// Warn logs warning level event
func (l *Logger) Warn(event string, c *Client, fields ...zap.Field) {
	l.logger.Warn("websocket_warning", l.fields(event, c, fields)...)
}
