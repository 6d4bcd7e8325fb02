package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/irsescapeplan/platform/pkg/kafka"
)

// EventPublisher is what the collector needs from a Kafka producer.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers engagement events in memory and flushes them to Kafka in
// batches. Track never blocks the request path: if the buffer is full the
// event is dropped and counted in the log.
type Collector struct {
	producer EventPublisher
	events   chan Event
	logger   *slog.Logger

	flushInterval time.Duration
	batchSize     int
	done          chan struct{}
}

func NewCollector(producer EventPublisher, logger *slog.Logger) *Collector {
	return &Collector{
		producer:      producer,
		events:        make(chan Event, 1024),
		logger:        logger.With("component", "analytics_collector"),
		flushInterval: 2 * time.Second,
		batchSize:     100,
		done:          make(chan struct{}),
	}
}

// Track enqueues an event for publication. Drops the event if the buffer is
// full rather than stalling the caller.
func (c *Collector) Track(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case c.events <- event:
	default:
		c.logger.Warn("event buffer full, dropping event", "type", event.Type)
	}
}

// Run drains the event channel, flushing batches on size or interval, until
// ctx is cancelled. The final partial batch is flushed before returning.
func (c *Collector) Run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, c.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		events := make([]kafka.Event, 0, len(batch))
		for _, e := range batch {
			key := e.UserID
			if key == "" {
				key = e.Query
			}
			events = append(events, kafka.Event{Key: key, Value: e})
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.producer.PublishBatch(flushCtx, events); err != nil {
			c.logger.Error("failed to flush event batch", "count", len(batch), "error", err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e := <-c.events:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-c.events:
			batch = append(batch, e)
			if len(batch) >= c.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Wait blocks until Run has flushed its final batch and returned.
func (c *Collector) Wait() {
	<-c.done
}
