package events

import (
	"context"
	"log"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// MemoryPublisher buffers events on a channel for in-process consumers.
// A full buffer drops the event with a warning rather than blocking a
// run.
type MemoryPublisher struct {
	ch chan models.RecordEvent
}

// NewMemoryPublisher creates a publisher with the given buffer size.
func NewMemoryPublisher(bufferSize int) *MemoryPublisher {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &MemoryPublisher{ch: make(chan models.RecordEvent, bufferSize)}
}

// Publish enqueues the event without blocking.
func (p *MemoryPublisher) Publish(ctx context.Context, ev models.RecordEvent) error {
	select {
	case p.ch <- ev:
	default:
		log.Printf("events: buffer full, dropping event for record %s", ev.RecordID)
	}
	return nil
}

// Events exposes the consumer side of the buffer.
func (p *MemoryPublisher) Events() <-chan models.RecordEvent {
	return p.ch
}

// Close closes the buffer.
func (p *MemoryPublisher) Close() error {
	close(p.ch)
	return nil
}
