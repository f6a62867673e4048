package websocket

import (
	"context"
	"testing"

	"committee-live/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	messages map[string][]byte
}

func (f fakeSubscriber) Subscribe(_ context.Context, patterns []string, handler func(channel string, payload []byte)) error {
	for channel, payload := range f.messages {
		handler(channel, payload)
	}
	return nil
}

type recordingSyncer struct {
	rooms []string
}

func (r *recordingSyncer) Sync(_ context.Context, room string, _ []byte) {
	r.rooms = append(r.rooms, room)
}

func TestRedisBridgeHandsFramesToSyncer(t *testing.T) {
	payload, err := events.Envelope{Type: events.TypePollUpdated, Data: map[string]string{"id": "p1"}}.Encode()
	require.NoError(t, err)

	syncer := &recordingSyncer{}
	bridge := NewRedisBridge(fakeSubscriber{messages: map[string][]byte{
		events.RoomChannel(events.GroupRoom("802.11")): payload,
		"presence:group:802.11":                        payload,
	}}, NewHub()).WithSync(syncer)

	require.NoError(t, bridge.Run(context.Background()))
	assert.Equal(t, []string{events.GroupRoom("802.11")}, syncer.rooms)
}
