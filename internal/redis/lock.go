package redis

import (
	"context"
	"fmt"
	"time"

	committee_errors "committee-live/pkg/errors"

	"github.com/go-redsync/redsync/v4"
	rsgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredis "github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when another instance holds the group lock.
var ErrLockNotAcquired = fmt.Errorf("%w: group lock not acquired", committee_errors.ErrConflict)

// GroupLocker serializes active poll switches of one group across instances.
type GroupLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

func NewGroupLocker(client *goredis.Client, expiry time.Duration) *GroupLocker {
	if expiry <= 0 {
		expiry = 5 * time.Second
	}
	return &GroupLocker{rs: redsync.New(rsgoredis.NewPool(client)), expiry: expiry}
}

func lockName(groupID string) string {
	return fmt.Sprintf("lock:group:%s:active-poll", groupID)
}

// WithGroupLock runs action while holding the group's lock.
func (l *GroupLocker) WithGroupLock(ctx context.Context, groupID string, action func() error) error {
	mutex := l.rs.NewMutex(lockName(groupID),
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(5),
		redsync.WithRetryDelay(50*time.Millisecond),
		redsync.WithDriftFactor(0.01),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrLockNotAcquired, err)
	}
	defer func() {
		_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
	}()
	return action()
}
