package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/clippings/clippings-api/internal/domain"
)

// ItemUpdate describes a partial update to an item. Nil fields are left
// untouched by the store.
type ItemUpdate struct {
	Title        *string
	Content      *string
	Status       *domain.ItemStatus
	RetryCount   *int
	ErrorMessage *string
}

// ItemStore defines the interface for item persistence operations.
type ItemStore interface {
	// CreateItem saves a new item to the store.
	// Returns ErrInvalidEntity if the item fails validation.
	CreateItem(ctx context.Context, item *domain.Item) error

	// GetItem retrieves an item by its ID.
	// Returns ErrItemNotFound if the item does not exist.
	GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// GetItemsByStatus retrieves items in any of the given statuses, ordered
	// oldest-created-first. A limit of zero means no limit.
	GetItemsByStatus(ctx context.Context, limit int, statuses ...domain.ItemStatus) ([]*domain.Item, error)

	// UpdateItem applies a partial update to the item with the given ID.
	// Returns ErrItemNotFound if the item does not exist.
	UpdateItem(ctx context.Context, id uuid.UUID, update ItemUpdate) error

	// BulkUpdateItems applies the same partial update to every listed item.
	BulkUpdateItems(ctx context.Context, ids []uuid.UUID, update ItemUpdate) error
}

// ContentStore defines the interface for persisting content derived from an
// item: its markdown rendering and its QA pairs with embeddings. The Get
// methods double as the idempotency gates for the content processing phase.
type ContentStore interface {
	// GetMarkdown retrieves the markdown record for an item.
	// Returns ErrMarkdownNotFound if no markdown has been stored yet.
	GetMarkdown(ctx context.Context, itemID uuid.UUID) (*domain.MarkdownRecord, error)

	// SaveMarkdown persists a markdown record for an item.
	SaveMarkdown(ctx context.Context, record *domain.MarkdownRecord) error

	// GetQAPairs retrieves all QA pairs stored for an item. An empty slice
	// with a nil error means no pairs have been stored.
	GetQAPairs(ctx context.Context, itemID uuid.UUID) ([]*domain.QAPair, error)

	// SaveQAPairs persists QA pairs, including their embedding vectors.
	SaveQAPairs(ctx context.Context, pairs []*domain.QAPair) error
}
