package events

import (
	"log/slog"
	"sync"
)

// defaultSubscriberBuffer is the channel buffer handed to each subscriber.
// A slow subscriber loses events rather than stalling the pipeline.
const defaultSubscriberBuffer = 64

// Broadcaster is a fire-and-forget publisher that fans events out to
// zero or more subscriber channels. Having no subscribers is a legal,
// non-error state.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[int]chan PipelineEvent
	nextID      int
	logger      *slog.Logger
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[int]chan PipelineEvent),
		logger:      logger.With("component", "event_broadcaster"),
	}
}

// Subscribe registers a new subscriber and returns its event channel along
// with a cancel function that removes the subscription and closes the
// channel.
func (b *Broadcaster) Subscribe() (<-chan PipelineEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan PipelineEvent, defaultSubscriberBuffer)
	b.subscribers[id] = ch
	b.logger.Debug("subscriber registered", "subscriber_count", len(b.subscribers))

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish delivers the event to all current subscribers without blocking.
// Events for subscribers with full buffers are dropped and logged.
func (b *Broadcaster) Publish(event PipelineEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.subscribers) == 0 {
		b.logger.Debug("no subscribers, dropping event",
			"event_type", event.Type,
			"item_id", event.ItemID)
		return
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("subscriber buffer full, dropping event",
				"subscriber_id", id,
				"event_type", event.Type,
				"item_id", event.ItemID)
		}
	}
}

// Ensure Broadcaster implements Publisher
var _ Publisher = (*Broadcaster)(nil)
