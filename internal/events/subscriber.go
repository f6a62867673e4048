package events

import "context"

// Subscriber receives frames published by RedisPublisher on any instance.
// patterns are redis glob patterns; handler runs on the subscriber goroutine.
type Subscriber interface {
	Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error
}
