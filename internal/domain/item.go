package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ItemStatus represents the processing state of a captured item.
type ItemStatus string

// Possible item status values
const (
	// ItemStatusAwaitingCapture marks an item whose raw content has not been
	// fetched yet.
	ItemStatusAwaitingCapture ItemStatus = "awaiting_capture"

	// ItemStatusCaptured marks an item whose raw content has been fetched but
	// not yet processed.
	ItemStatusCaptured ItemStatus = "captured"

	// ItemStatusAwaitingProcessing marks an item that was captured earlier and
	// is queued for (re)processing.
	ItemStatusAwaitingProcessing ItemStatus = "awaiting_processing"

	// ItemStatusProcessing marks an item currently inside the content
	// processing phase. Items left in this state after an unclean shutdown are
	// reset by the crash recovery scanner.
	ItemStatusProcessing ItemStatus = "processing"

	// ItemStatusComplete marks a fully processed item.
	ItemStatusComplete ItemStatus = "complete"

	// ItemStatusError marks an item that exhausted its retry budget.
	ItemStatusError ItemStatus = "error"
)

// Common validation errors for Item
var (
	ErrEmptyItemID       = errors.New("item ID cannot be empty")
	ErrEmptyItemURL      = errors.New("item URL cannot be empty")
	ErrInvalidItemStatus = errors.New("invalid item status")
	ErrNegativeRetries   = errors.New("retry count cannot be negative")
)

// Item represents a captured web page progressing through the pipeline.
// It tracks the original location, the raw content once fetched, and the
// bookkeeping fields the queue engine uses to drive the item's lifecycle.
type Item struct {
	ID           uuid.UUID  `json:"id"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Status       ItemStatus `json:"status"`
	RetryCount   int        `json:"retry_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewItem creates a new Item for the given URL. The item starts in the
// awaiting_capture state with a zero retry count.
// Returns an error if validation fails.
func NewItem(url string) (*Item, error) {
	item := &Item{
		ID:        uuid.New(),
		URL:       url,
		Status:    ItemStatusAwaitingCapture,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the Item has valid data.
// Returns an error if any field fails validation.
func (i *Item) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyItemID
	}

	if i.URL == "" {
		return ErrEmptyItemURL
	}

	if !isValidItemStatus(i.Status) {
		return ErrInvalidItemStatus
	}

	if i.RetryCount < 0 {
		return ErrNegativeRetries
	}

	return nil
}

// UpdateStatus updates the item's status and the UpdatedAt timestamp.
// Leaving the error state clears the stored error message, per the
// lifecycle invariant.
func (i *Item) UpdateStatus(status ItemStatus) error {
	if !isValidItemStatus(status) {
		return ErrInvalidItemStatus
	}

	if i.Status == ItemStatusError && status != ItemStatusError {
		i.ErrorMessage = ""
	}

	i.Status = status
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the item has reached a final state.
func (i *Item) IsTerminal() bool {
	return i.Status == ItemStatusComplete || i.Status == ItemStatusError
}

// isValidItemStatus checks if the given status is a valid ItemStatus.
func isValidItemStatus(status ItemStatus) bool {
	switch status {
	case ItemStatusAwaitingCapture, ItemStatusCaptured, ItemStatusAwaitingProcessing,
		ItemStatusProcessing, ItemStatusComplete, ItemStatusError:
		return true
	default:
		return false
	}
}
