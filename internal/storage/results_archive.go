package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"committee-live/internal/domain/poll"
)

// ObjectStore is the subset of Client the archive needs.
type ObjectStore interface {
	PutJSON(ctx context.Context, key string, body []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// ArchivedResults is the document stored for a closed poll
type ArchivedResults struct {
	GroupID    string              `json:"groupId"`
	EventID    string              `json:"eventId"`
	PollID     string              `json:"pollId"`
	Title      string              `json:"title"`
	Type       poll.Type           `json:"type"`
	RecordType poll.RecordType     `json:"recordType"`
	Options    []string            `json:"options"`
	Summary    poll.ResultsSummary `json:"resultsSummary"`
	Ballots    []poll.Vote         `json:"ballots,omitempty"`
	ArchivedAt time.Time           `json:"archivedAt"`
}

// ResultsArchive writes frozen poll results to object storage.
type ResultsArchive struct {
	store ObjectStore
}

func NewResultsArchive(store ObjectStore) *ResultsArchive {
	return &ResultsArchive{store: store}
}

func ResultsKey(groupID, eventID, pollID string) string {
	return fmt.Sprintf("results/%s/%s/%s.json", groupID, eventID, pollID)
}

// Archive stores the summary of a closed poll. Ballots are kept only for polls
// whose record type links voters to their selections.
func (a *ResultsArchive) Archive(ctx context.Context, groupID string, p poll.Poll, ballots []poll.Vote) error {
	if p.ResultsSummary == nil {
		return fmt.Errorf("poll %s has no frozen results", p.ID)
	}
	doc := ArchivedResults{
		GroupID:    groupID,
		EventID:    p.EventID,
		PollID:     p.ID,
		Title:      p.Title,
		Type:       p.Type,
		RecordType: p.RecordType,
		Options:    p.Options,
		Summary:    *p.ResultsSummary,
		ArchivedAt: time.Now().UTC(),
	}
	if p.RecordType != poll.RecordAnonymous {
		doc.Ballots = ballots
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return a.store.PutJSON(ctx, ResultsKey(groupID, p.EventID, p.ID), body)
}

// URL returns a download link for an archived poll.
func (a *ResultsArchive) URL(ctx context.Context, groupID, eventID, pollID string) (string, error) {
	return a.store.PresignGet(ctx, ResultsKey(groupID, eventID, pollID))
}
