package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"committee-live/internal/events"

	"go.uber.org/zap"
)

// ErrStopped is returned by Do once the coordinator has shut down.
var ErrStopped = errors.New("group session stopped")

const loadTimeout = 10 * time.Second

// Op is a unit of work against one group. ctx outlives the caller: a job that was
// accepted runs to completion even when the requesting socket goes away.
type Op func(ctx context.Context, g *Group) error

type job struct {
	ctx    context.Context
	op     Op
	result chan error
}

// Coordinator serializes every mutation of one group through a single goroutine.
type Coordinator struct {
	group     *Group
	publisher events.Publisher
	jobs      chan job
	quit      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	loadErr   error
	hasActive atomic.Bool
	log       *zap.Logger
}

func newCoordinator(groupID string, publisher events.Publisher, load Op) *Coordinator {
	c := &Coordinator{
		group:     newGroup(groupID),
		publisher: publisher,
		jobs:      make(chan job, 64),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		log:       zap.L().With(zap.String("component", "coordinator"), zap.String("group_id", groupID)),
	}
	go c.run(load)
	return c
}

func (c *Coordinator) GroupID() string { return c.group.id }

// HasActive reports whether the group held an active poll after the last job.
func (c *Coordinator) HasActive() bool { return c.hasActive.Load() }

func (c *Coordinator) run(load Op) {
	defer close(c.done)

	if load != nil {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		c.loadErr = c.exec(ctx, load)
		cancel()
		if c.loadErr != nil {
			c.log.Error("failed to load group session", zap.Error(c.loadErr))
		}
	}

	for {
		select {
		case <-c.quit:
			return
		case j := <-c.jobs:
			if c.loadErr != nil {
				j.result <- c.loadErr
				continue
			}
			j.result <- c.exec(context.WithoutCancel(j.ctx), j.op)
		}
	}
}

func (c *Coordinator) exec(ctx context.Context, op Op) (err error) {
	c.group.pending = nil
	defer func() {
		if r := recover(); r != nil {
			c.group.pending = nil
			err = fmt.Errorf("group %s: panic in session op: %v", c.group.id, r)
			c.log.Error("session op panicked", zap.Any("panic", r))
		}
		c.hasActive.Store(c.group.active != nil)
	}()

	if err := op(ctx, c.group); err != nil {
		c.group.pending = nil
		return err
	}
	c.flush(ctx)
	return nil
}

func (c *Coordinator) flush(ctx context.Context) {
	pending := c.group.pending
	c.group.pending = nil
	for _, e := range pending {
		if err := c.publisher.Publish(ctx, e.room, e.env); err != nil {
			c.log.Warn("failed to publish indication",
				zap.String("room", e.room), zap.String("type", e.env.Type), zap.Error(err))
		}
	}
}

// Do runs op on the coordinator goroutine and waits for it. If ctx ends first the
// caller stops waiting but an op that was already queued still runs.
func (c *Coordinator) Do(ctx context.Context, op Op) error {
	j := job{ctx: ctx, op: op, result: make(chan error, 1)}
	select {
	case c.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		select {
		case err := <-j.result:
			return err
		default:
			return ErrStopped
		}
	}
}

// Stop ends the coordinator after the job in progress, if any.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
	<-c.done
}
