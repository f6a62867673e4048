package events

import (
	"context"
	"strings"
)

// Publisher fans an indication out to every socket in a room
type Publisher interface {
	Publish(ctx context.Context, room string, env Envelope) error
}

// Broadcaster delivers an encoded frame to the sockets of one room on this instance.
type Broadcaster interface {
	Broadcast(room string, payload []byte)
}

// RawPublisher publishes an encoded frame on a pub/sub channel.
type RawPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// LocalPublisher delivers straight to the in-process hub.
type LocalPublisher struct {
	hub Broadcaster
}

func NewLocalPublisher(hub Broadcaster) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(_ context.Context, room string, env Envelope) error {
	payload, err := env.Encode()
	if err != nil {
		return err
	}
	p.hub.Broadcast(room, payload)
	return nil
}

// RedisPublisher routes through redis so every instance's hub receives the frame.
type RedisPublisher struct {
	pub RawPublisher
}

func NewRedisPublisher(pub RawPublisher) *RedisPublisher {
	return &RedisPublisher{pub: pub}
}

func (p *RedisPublisher) Publish(ctx context.Context, room string, env Envelope) error {
	payload, err := env.Encode()
	if err != nil {
		return err
	}
	return p.pub.Publish(ctx, RoomChannel(room), payload)
}

// RoomFromChannel is the inverse of RoomChannel.
func RoomFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, ChannelPrefixRoom) {
		return "", false
	}
	return strings.TrimPrefix(channel, ChannelPrefixRoom), true
}
