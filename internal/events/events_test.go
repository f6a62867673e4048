package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupFromRoom(t *testing.T) {
	tests := []struct {
		room  string
		group string
		ok    bool
	}{
		{room: GroupRoom("802.11"), group: "802.11", ok: true},
		{room: AdminRoom("802.11"), group: "802.11", ok: true},
		{room: "group:", ok: false},
		{room: "user:42", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.room, func(t *testing.T) {
			group, ok := GroupFromRoom(tt.room)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.group, group)
		})
	}
}

func TestDecodeRef(t *testing.T) {
	tests := []struct {
		name    string
		env     Envelope
		want    Ref
		wantErr bool
	}{
		{name: "entity", env: Envelope{Type: TypePollUpdated, Data: map[string]any{"id": "p1", "state": "opened"}}, want: Ref{Type: TypePollUpdated, ID: "p1"}},
		{name: "bare id", env: Envelope{Type: TypePollDeleted, Data: "p1"}, want: Ref{Type: TypePollDeleted, ID: "p1"}},
		{name: "no id", env: Envelope{Type: TypePollVoted, Data: map[string]any{"pollId": "p1"}}, want: Ref{Type: TypePollVoted}},
		{name: "array", env: Envelope{Type: TypePollAdded, Data: []int{1}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := tt.env.Encode()
			require.NoError(t, err)
			got, err := DecodeRef(payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DecodeRef([]byte("{not json"))
	assert.Error(t, err)
}
