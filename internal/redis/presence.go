package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"committee-live/internal/domain/poll"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const presenceKeyPrefix = "presence:group:"

// PresenceStore keeps the attendees of every group in a hash keyed by client id,
// shared by all instances.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &PresenceStore{client: client, ttl: ttl}
}

func presenceKey(groupID string) string {
	return presenceKeyPrefix + groupID
}

// Join records one socket. The hash expires ttl after the last join so entries of
// a crashed instance do not linger forever.
func (p *PresenceStore) Join(ctx context.Context, groupID, clientID string, a poll.Attendee) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal attendee: %w", err)
	}
	key := presenceKey(groupID)
	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, key, clientID, data)
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record presence: %w", err)
	}
	return nil
}

func (p *PresenceStore) Leave(ctx context.Context, groupID, clientID string) error {
	return p.client.HDel(ctx, presenceKey(groupID), clientID).Err()
}

// Attendees lists every socket of the group, one entry per socket.
func (p *PresenceStore) Attendees(ctx context.Context, groupID string) ([]poll.Attendee, error) {
	vals, err := p.client.HVals(ctx, presenceKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read presence: %w", err)
	}
	out := make([]poll.Attendee, 0, len(vals))
	for _, v := range vals {
		var a poll.Attendee
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			zap.L().Warn("skipping corrupt presence entry", zap.String("group_id", groupID), zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
