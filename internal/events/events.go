package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of pipeline event being published.
type EventType string

// Pipeline event types
const (
	// EventProcessingStarted is published when the content processing phase
	// begins work on an item.
	EventProcessingStarted EventType = "processing_started"

	// EventItemReady is published when an item has been fully processed and
	// is available for search.
	EventItemReady EventType = "item_ready"

	// EventProcessingFailed is published when an item exhausts its retry
	// budget and is marked as a terminal error.
	EventProcessingFailed EventType = "processing_failed"
)

// PipelineEvent is a transient notification of an item's phase transition.
// Events carry no delivery guarantee: if nobody is subscribed, the event is
// simply unobserved.
type PipelineEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      EventType `json:"type"`
	ItemID    uuid.UUID `json:"item_id"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProcessingStarted creates a processing_started event for an item.
func NewProcessingStarted(itemID uuid.UUID) PipelineEvent {
	return newEvent(EventProcessingStarted, itemID, "")
}

// NewItemReady creates an item_ready event for an item.
func NewItemReady(itemID uuid.UUID) PipelineEvent {
	return newEvent(EventItemReady, itemID, "")
}

// NewProcessingFailed creates a processing_failed event carrying the
// item's final error message.
func NewProcessingFailed(itemID uuid.UUID, message string) PipelineEvent {
	return newEvent(EventProcessingFailed, itemID, message)
}

func newEvent(eventType EventType, itemID uuid.UUID, message string) PipelineEvent {
	return PipelineEvent{
		ID:        uuid.New(),
		Type:      eventType,
		ItemID:    itemID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Publisher defines an interface for components that publish pipeline
// events. Publishing is best-effort and must never fail the caller.
type Publisher interface {
	// Publish delivers the event to any current subscribers. It never
	// blocks and never returns an error; delivery problems are logged.
	Publish(event PipelineEvent)
}
