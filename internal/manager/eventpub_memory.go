package manager

import (
	"sync"
	"time"
)

// EventBus stores recent events in memory and serves incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded buffer; maxEvents <= 0 means 500.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &EventBus{maxEvents: maxEvents, events: make([]Event, 0, maxEvents)}
}

// Publish assigns the next sequence number and appends e, evicting the oldest
// events beyond capacity.
func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSeq++
	e.Seq = b.nextSeq
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	b.events = append(b.events, e)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, 0, len(b.events))
	for _, e := range b.events {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Events returns a copy of every buffered event.
func (b *EventBus) Events() []Event { return b.Since(0) }

// LastSeq is the sequence number of the newest event.
func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
