package events

import (
	"sync"
	"testing"
	"time"

	"github.com/conneroisu/sitegen/internal/publish"
	"github.com/conneroisu/sitegen/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "site_created", EventTypeSiteCreated.String())
	assert.Equal(t, "build_started", EventTypeBuildStarted.String())
	assert.Equal(t, "resource_published", EventTypeResourcePublished.String())
	assert.Equal(t, "build_finished", EventTypeBuildFinished.String())
	assert.Equal(t, "site_cleaned", EventTypeSiteCleaned.String())
	assert.Equal(t, "unknown", EventType(99).String())
}

func TestBusDeliversToSinks(t *testing.T) {
	bus := NewBus()
	first := &Recorder{}
	second := &Recorder{}
	bus.Subscribe(first)
	bus.Subscribe(second)

	bus.Emit(Event{Type: EventTypeBuildStarted, Root: "/site"})
	bus.Emit(Event{
		Type:    EventTypeResourcePublished,
		Path:    "index.html",
		Kind:    resource.KindTemplate,
		Outcome: publish.OutcomeRendered,
	})

	for _, r := range []*Recorder{first, second} {
		assert.Equal(t, []EventType{EventTypeBuildStarted, EventTypeResourcePublished}, r.Types())
	}

	published := first.OfType(EventTypeResourcePublished)
	require.Len(t, published, 1)
	assert.Equal(t, "index.html", published[0].Path)
	assert.Equal(t, publish.OutcomeRendered, published[0].Outcome)
	assert.False(t, published[0].Timestamp.IsZero())
}

func TestBusKeepsTimestamp(t *testing.T) {
	bus := NewBus()
	rec := &Recorder{}
	bus.Subscribe(rec)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.Emit(Event{Type: EventTypeSiteCleaned, Timestamp: ts})

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, ts, rec.Events()[0].Timestamp)
}

func TestBusWatch(t *testing.T) {
	bus := NewBus()
	ch := bus.Watch()

	bus.Emit(Event{Type: EventTypeSiteCreated, Root: "/site"})

	select {
	case e := <-ch:
		assert.Equal(t, EventTypeSiteCreated, e.Type)
		assert.Equal(t, "/site", e.Root)
	case <-time.After(time.Second):
		t.Fatal("expected event on watch channel")
	}

	bus.UnWatch(ch)
	_, open := <-ch
	assert.False(t, open)

	// Emitting after UnWatch must not panic on the closed channel.
	bus.Emit(Event{Type: EventTypeSiteCreated})
}

func TestBusFullWatcherDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_ = bus.Watch()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 250; i++ {
			bus.Emit(Event{Type: EventTypeResourcePublished})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("emit blocked on a full watcher")
	}
}

func TestBusSerializesSinks(t *testing.T) {
	bus := NewBus()
	count := 0
	bus.Subscribe(SinkFunc(func(Event) {
		count++
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Emit(Event{Type: EventTypeResourcePublished})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}

func TestDiscardAndReset(t *testing.T) {
	Discard.Emit(Event{Type: EventTypeBuildStarted})

	rec := &Recorder{}
	rec.Emit(Event{Type: EventTypeBuildStarted})
	rec.Reset()
	assert.Empty(t, rec.Events())
}
