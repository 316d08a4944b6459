package stream

import (
	"sync"

	"github.com/meridian-labs/lookout/internal/event"
)

// DefaultBufferSize is the default live buffer capacity.
const DefaultBufferSize = 100

// Buffer is a fixed-capacity, ordered event buffer. Appending beyond
// capacity evicts the oldest entry, so the buffer always holds the K
// most-recently-arrived events in arrival order. Writes come from a
// single goroutine (the stream receive loop); reads may come from any.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	events   []event.Event
}

// NewBuffer creates a buffer with the given capacity. Non-positive
// capacities fall back to DefaultBufferSize.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &Buffer{
		capacity: capacity,
		events:   make([]event.Event, 0, capacity),
	}
}

// Append adds an event, evicting the oldest entry if the buffer is full.
func (b *Buffer) Append(ev event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == b.capacity {
		copy(b.events, b.events[1:])
		b.events = b.events[:b.capacity-1]
	}
	b.events = append(b.events, ev)
}

// Events returns a copy of the buffer contents in arrival order,
// oldest first.
func (b *Buffer) Events() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]event.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Recent returns a copy of the buffer contents newest first, for display.
func (b *Buffer) Recent() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]event.Event, len(b.events))
	for i, ev := range b.events {
		out[len(b.events)-1-i] = ev
	}
	return out
}

// Run returns the buffered events for a single run, in arrival order.
func (b *Buffer) Run(runID string) []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []event.Event
	for _, ev := range b.events {
		if ev.RunID == runID {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Capacity returns the buffer capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}
