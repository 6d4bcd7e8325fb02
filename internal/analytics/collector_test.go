package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/irsescapeplan/platform/pkg/kafka"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *capturingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestCollectorFlushesOnShutdown(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector(pub, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	c.Track(Event{Type: EventSearch, Query: "reps"})
	c.Track(Event{Type: EventQuizAward, UserID: "u1", Points: 25})

	cancel()
	c.Wait()

	if pub.count() != 2 {
		t.Fatalf("expected 2 events flushed, got %d", pub.count())
	}
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector(pub, testLogger())
	c.flushInterval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Track(Event{Type: EventSearch, Query: "qof"})

	deadline := time.After(2 * time.Second)
	for pub.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("event was not flushed within the interval")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestTrackStampsTimestamps(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector(pub, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	c.Track(Event{Type: EventSearch, Query: "agi"})
	cancel()
	c.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	event, ok := pub.events[0].Value.(Event)
	if !ok {
		t.Fatalf("unexpected event value type %T", pub.events[0].Value)
	}
	if event.Timestamp.IsZero() {
		t.Error("Track must stamp a timestamp")
	}
}
