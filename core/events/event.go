package events

import (
	"sync"

	"adlottery/core/types"
)

// Event represents a structured state change emitted by an engine.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can render themselves into the generic
// broadcast representation.
type Payload interface {
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. indexers, metrics).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Render converts evt into its broadcast form. Events that do not implement
// Payload, or that render to nil, yield nil.
func Render(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	payload, ok := evt.(Payload)
	if !ok {
		return nil
	}
	return payload.Event()
}

// Buffer collects rendered events in emission order until they are drained.
// Operations stage their events in a Buffer and only publish them once the
// accompanying state changes have been committed.
type Buffer struct {
	mu     sync.Mutex
	events []*types.Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	rendered := Render(evt)
	if b == nil || rendered == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, rendered)
	b.mu.Unlock()
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Drain returns the buffered events and resets the buffer.
func (b *Buffer) Drain() []*types.Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Discard drops all buffered events.
func (b *Buffer) Discard() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Record is a committed event together with its position in the append-only
// event log.
type Record struct {
	Seq         uint64       `json:"seq"`
	CommittedAt int64        `json:"committedAt"`
	Event       *types.Event `json:"event"`
}

// Sink receives committed events in commit order.
type Sink interface {
	Deliver(Record)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Record)

// Deliver implements Sink.
func (f SinkFunc) Deliver(rec Record) {
	if f != nil {
		f(rec)
	}
}
