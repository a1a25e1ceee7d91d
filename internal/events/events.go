// Package events carries build progress out of the core pipeline.
//
// The site builder never prints. It emits events to a Sink and the CLI
// subscribes to turn them into console output.
package events

import (
	"sync"
	"time"

	"github.com/conneroisu/sitegen/internal/publish"
	"github.com/conneroisu/sitegen/internal/resource"
)

// EventType identifies what happened.
type EventType int

const (
	EventTypeSiteCreated EventType = iota
	EventTypeBuildStarted
	EventTypeResourcePublished
	EventTypeBuildFinished
	EventTypeSiteCleaned
)

// String returns the string representation of the EventType
func (t EventType) String() string {
	switch t {
	case EventTypeSiteCreated:
		return "site_created"
	case EventTypeBuildStarted:
		return "build_started"
	case EventTypeResourcePublished:
		return "resource_published"
	case EventTypeBuildFinished:
		return "build_finished"
	case EventTypeSiteCleaned:
		return "site_cleaned"
	default:
		return "unknown"
	}
}

// Event is a single notification from the pipeline. Only the fields relevant
// to Type are set.
type Event struct {
	Type      EventType
	Root      string
	Path      string
	Kind      resource.Kind
	Outcome   publish.Outcome
	Duration  time.Duration
	Err       error
	Timestamp time.Time
}

// Sink receives events.
type Sink interface {
	Emit(event Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event Event)

// Emit calls f.
func (f SinkFunc) Emit(event Event) {
	f(event)
}

type discard struct{}

func (discard) Emit(Event) {}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

// Bus fans events out to subscribed sinks and watch channels.
//
// Sinks are called synchronously and one event at a time, so a sink does not
// need its own locking even when the pipeline publishes concurrently. Watch
// channels are fed without blocking; a full channel misses the event.
type Bus struct {
	mu       sync.Mutex
	sinks    []Sink
	watchers []chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe adds a sink.
func (b *Bus) Subscribe(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sinks = append(b.sinks, sink)
}

// Watch returns a buffered channel that receives events.
func (b *Bus) Watch() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100)
	b.watchers = append(b.watchers, ch)
	return ch
}

// UnWatch removes a watch channel and closes it.
func (b *Bus) UnWatch(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, watcher := range b.watchers {
		if watcher == ch {
			close(watcher)
			b.watchers = append(b.watchers[:i], b.watchers[i+1:]...)
			break
		}
	}
}

// Emit delivers event to every sink and watcher. A zero Timestamp is set to
// the current time.
func (b *Bus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sink := range b.sinks {
		sink.Emit(event)
	}

	for _, watcher := range b.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Recorder is a Sink that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records event.
func (r *Recorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}
