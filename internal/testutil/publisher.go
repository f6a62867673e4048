package testutil

import (
	"context"
	"sync"

	"committee-live/internal/events"
)

// Sent is one indication captured by RecordingPublisher.
type Sent struct {
	Room string
	Env  events.Envelope
}

// RecordingPublisher keeps every published indication in order.
type RecordingPublisher struct {
	mu   sync.Mutex
	sent []Sent
}

func (p *RecordingPublisher) Publish(_ context.Context, room string, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, Sent{Room: room, Env: env})
	return nil
}

func (p *RecordingPublisher) All() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sent(nil), p.sent...)
}

// OfType filters captured indications by type.
func (p *RecordingPublisher) OfType(msgType string) []Sent {
	var out []Sent
	for _, s := range p.All() {
		if s.Env.Type == msgType {
			out = append(out, s)
		}
	}
	return out
}

func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}
