package storage

import (
	"context"
	"encoding/json"
	"testing"

	"committee-live/internal/domain/poll"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) PutJSON(_ context.Context, key string, body []byte) error {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = body
	return nil
}

func (m *memoryStore) PresignGet(_ context.Context, key string) (string, error) {
	return "https://bucket.example/" + key + "?sig=1", nil
}

func closedPoll(rt poll.RecordType) poll.Poll {
	return poll.Poll{
		ID:             "p1",
		EventID:        "e1",
		State:          poll.StateClosed,
		Type:           poll.TypeStrawpoll,
		RecordType:     rt,
		Title:          "Venue",
		Options:        []string{"Berlin", "Vancouver"},
		Choice:         poll.ChoiceSingle,
		ResultsSummary: &poll.ResultsSummary{Counts: []int{1, 1}, NumVotes: 2},
	}
}

func TestArchiveBallotPolicy(t *testing.T) {
	ballots := []poll.Vote{{PollID: "p1", SAPIN: 200, Votes: []int{0}}, {PollID: "p1", SAPIN: 201, Votes: []int{1}}}

	tests := []struct {
		name        string
		recordType  poll.RecordType
		wantBallots int
	}{
		{name: "anonymous drops ballots", recordType: poll.RecordAnonymous, wantBallots: 0},
		{name: "admin view keeps ballots", recordType: poll.RecordAdminView, wantBallots: 2},
		{name: "recorded keeps ballots", recordType: poll.RecordRecorded, wantBallots: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			archive := NewResultsArchive(store)
			require.NoError(t, archive.Archive(context.Background(), "802.11", closedPoll(tt.recordType), ballots))

			body, ok := store.objects["results/802.11/e1/p1.json"]
			require.True(t, ok)
			var doc ArchivedResults
			require.NoError(t, json.Unmarshal(body, &doc))
			assert.Equal(t, "802.11", doc.GroupID)
			assert.Equal(t, []int{1, 1}, doc.Summary.Counts)
			assert.Len(t, doc.Ballots, tt.wantBallots)
		})
	}
}

func TestArchiveRequiresFrozenResults(t *testing.T) {
	p := closedPoll(poll.RecordRecorded)
	p.ResultsSummary = nil
	err := NewResultsArchive(&memoryStore{}).Archive(context.Background(), "802.11", p, nil)
	assert.Error(t, err)
}

func TestArchiveURL(t *testing.T) {
	url, err := NewResultsArchive(&memoryStore{}).URL(context.Background(), "802.11", "e1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/results/802.11/e1/p1.json?sig=1", url)
}
