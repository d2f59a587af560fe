package events

import (
	"context"
	"sync"
)

// Envelope is one published event with its topic.
type Envelope struct {
	Topic string
	Event any
}

// ChannelPublisher delivers events to an in-process channel. The watch TUI
// and tests subscribe to it; publishing never blocks, events are dropped
// once the buffer fills.
type ChannelPublisher struct {
	mu     sync.Mutex
	ch     chan Envelope
	closed bool
}

// NewChannelPublisher creates a publisher with the given buffer size. Sizes
// below 1 fall back to a reasonable default.
func NewChannelPublisher(buffer int) *ChannelPublisher {
	if buffer < 1 {
		buffer = 64
	}
	return &ChannelPublisher{ch: make(chan Envelope, buffer)}
}

// Events returns the subscription channel. It is closed by Close.
func (p *ChannelPublisher) Events() <-chan Envelope {
	return p.ch
}

func (p *ChannelPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	select {
	case p.ch <- Envelope{Topic: topic, Event: event}:
	default:
		// Drop rather than stall the scheduling loop.
	}
	return nil
}

func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
