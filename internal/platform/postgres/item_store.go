package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/platform/logger"
	"github.com/clippings/clippings-api/internal/store"
)

// PostgresItemStore implements the store.ItemStore interface using PostgreSQL
type PostgresItemStore struct {
	db store.DBTX
}

// NewPostgresItemStore creates a new PostgresItemStore
func NewPostgresItemStore(db store.DBTX) *PostgresItemStore {
	return &PostgresItemStore{
		db: db,
	}
}

// WithTx returns a new store bound to the given transaction.
func (s *PostgresItemStore) WithTx(tx *sql.Tx) *PostgresItemStore {
	return &PostgresItemStore{db: tx}
}

// CreateItem saves a new item to the database
func (s *PostgresItemStore) CreateItem(ctx context.Context, item *domain.Item) error {
	log := logger.FromContext(ctx)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO items (id, url, title, content, status, retry_count, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.URL,
		item.Title,
		item.Content,
		item.Status,
		item.RetryCount,
		item.ErrorMessage,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create item",
			"item_id", item.ID,
			"url", item.URL,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetItem retrieves an item by its ID
func (s *PostgresItemStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	query := `
		SELECT id, url, title, content, status, retry_count, error_message, created_at, updated_at
		FROM items
		WHERE id = $1
	`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrItemNotFound
		}
		return nil, MapError(err)
	}

	return item, nil
}

// GetItemsByStatus retrieves items in any of the given statuses, ordered
// oldest-created-first. A limit of zero means no limit.
func (s *PostgresItemStore) GetItemsByStatus(
	ctx context.Context,
	limit int,
	statuses ...domain.ItemStatus,
) ([]*domain.Item, error) {
	log := logger.FromContext(ctx)

	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	for i, status := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, status)
	}

	query := fmt.Sprintf(`
		SELECT id, url, title, content, status, retry_count, error_message, created_at, updated_at
		FROM items
		WHERE status IN (%s)
		ORDER BY created_at ASC
	`, strings.Join(placeholders, ", "))

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query items by status",
			"statuses", statuses,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// UpdateItem applies a partial update to the item with the given ID
func (s *PostgresItemStore) UpdateItem(ctx context.Context, id uuid.UUID, update store.ItemUpdate) error {
	log := logger.FromContext(ctx)

	assignments, args := itemAssignments(update)
	if len(assignments) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE items SET %s WHERE id = $%d",
		strings.Join(assignments, ", "),
		len(args),
	)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update item",
			"item_id", id,
			"error", err)
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrItemNotFound
	}

	return nil
}

// BulkUpdateItems applies the same partial update to every listed item
func (s *PostgresItemStore) BulkUpdateItems(ctx context.Context, ids []uuid.UUID, update store.ItemUpdate) error {
	log := logger.FromContext(ctx)

	if len(ids) == 0 {
		return nil
	}

	assignments, args := itemAssignments(update)
	if len(assignments) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+i+1)
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"UPDATE items SET %s WHERE id IN (%s)",
		strings.Join(assignments, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to bulk update items",
			"item_count", len(ids),
			"error", err)
		return MapError(err)
	}

	return nil
}

// itemAssignments builds the SET clause for a partial item update. The
// updated_at column always moves with the update.
func itemAssignments(update store.ItemUpdate) ([]string, []any) {
	var assignments []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Content != nil {
		add("content", *update.Content)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.RetryCount != nil {
		add("retry_count", *update.RetryCount)
	}
	if update.ErrorMessage != nil {
		add("error_message", *update.ErrorMessage)
	}

	if len(assignments) > 0 {
		add("updated_at", time.Now().UTC())
	}

	return assignments, args
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var title, content, errorMessage sql.NullString

	err := row.Scan(
		&item.ID,
		&item.URL,
		&title,
		&content,
		&item.Status,
		&item.RetryCount,
		&errorMessage,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Title = title.String
	item.Content = content.String
	item.ErrorMessage = errorMessage.String
	return &item, nil
}

// Ensure PostgresItemStore implements store.ItemStore
var _ store.ItemStore = (*PostgresItemStore)(nil)
