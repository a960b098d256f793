package events

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBroadcaster_PublishWithoutSubscribers(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(testLogger())

	// Must not panic or block.
	b.Publish(NewItemReady(uuid.New()))
}

func TestBroadcaster_DeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(testLogger())

	first, cancelFirst := b.Subscribe()
	second, cancelSecond := b.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	itemID := uuid.New()
	b.Publish(NewProcessingStarted(itemID))

	for _, ch := range []<-chan PipelineEvent{first, second} {
		select {
		case event := <-ch:
			assert.Equal(t, EventProcessingStarted, event.Type)
			assert.Equal(t, itemID, event.ItemID)
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for event delivery")
		}
	}
}

func TestBroadcaster_CancelStopsDelivery(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(testLogger())

	ch, cancel := b.Subscribe()
	cancel()

	// The channel is closed on cancel.
	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic on the closed channel.
	b.Publish(NewItemReady(uuid.New()))
}

func TestBroadcaster_CancelIsIdempotent(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(testLogger())

	_, cancel := b.Subscribe()
	cancel()
	cancel()
}

func TestBroadcaster_SlowSubscriberDropsNotBlocks(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(testLogger())

	ch, cancel := b.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < defaultSubscriberBuffer+10; i++ {
			b.Publish(NewItemReady(uuid.New()))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}

	// The buffer holds exactly its capacity; the overflow was dropped.
	assert.Len(t, ch, defaultSubscriberBuffer)
}

func TestNewProcessingFailedCarriesMessage(t *testing.T) {
	t.Parallel()

	itemID := uuid.New()
	event := NewProcessingFailed(itemID, "Failed after 3 attempts: timeout")

	assert.Equal(t, EventProcessingFailed, event.Type)
	assert.Equal(t, itemID, event.ItemID)
	assert.Equal(t, "Failed after 3 attempts: timeout", event.Message)
	require.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}
