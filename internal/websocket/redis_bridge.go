package websocket

import (
	"context"

	"committee-live/internal/events"
)

// RoomSyncer refreshes local state from a frame another instance published.
type RoomSyncer interface {
	Sync(ctx context.Context, room string, payload []byte)
}

// RedisBridge replays room frames published by any instance into the local hub.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
	sync       RoomSyncer
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

// WithSync hands every relayed frame to s after it reached the hub.
func (b *RedisBridge) WithSync(s RoomSyncer) *RedisBridge {
	b.sync = s
	return b
}

func (b *RedisBridge) Run(ctx context.Context) error {
	patterns := []string{events.ChannelPrefixRoom + "*"}
	return b.subscriber.Subscribe(ctx, patterns, func(channel string, payload []byte) {
		room, ok := events.RoomFromChannel(channel)
		if !ok {
			return
		}
		b.hub.Broadcast(room, payload)
		if b.sync != nil {
			b.sync.Sync(ctx, room, payload)
		}
	})
}
