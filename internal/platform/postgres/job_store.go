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

// PostgresJobStore implements the store.JobStore interface using PostgreSQL
type PostgresJobStore struct {
	db store.DBTX

	// pool is set when the store was created from a connection pool, which
	// lets CreateJob open its own transaction. A store bound to an existing
	// transaction leaves it nil and inserts directly.
	pool *sql.DB
}

// NewPostgresJobStore creates a new PostgresJobStore
func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{
		db:   db,
		pool: db,
	}
}

// WithTx returns a new store bound to the given transaction.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) *PostgresJobStore {
	return &PostgresJobStore{db: tx}
}

// CreateJob saves a new job and its child job items in one transaction
func (s *PostgresJobStore) CreateJob(ctx context.Context, job *domain.Job, items []*domain.JobItem) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	for _, ji := range items {
		if err := ji.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	if s.pool != nil {
		return store.RunInTransaction(ctx, s.pool, func(ctx context.Context, tx *sql.Tx) error {
			return s.WithTx(tx).insertJob(ctx, job, items)
		})
	}
	return s.insertJob(ctx, job, items)
}

func (s *PostgresJobStore) insertJob(ctx context.Context, job *domain.Job, items []*domain.JobItem) error {
	log := logger.FromContext(ctx)

	jobQuery := `
		INSERT INTO jobs (id, status, total_items, completed_items, failed_items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, jobQuery,
		job.ID,
		job.Status,
		job.TotalItems,
		job.CompletedItems,
		job.FailedItems,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create job",
			"job_id", job.ID,
			"error", err)
		return MapError(err)
	}

	itemQuery := `
		INSERT INTO job_items (id, job_id, item_id, status, retry_count, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, ji := range items {
		_, err := s.db.ExecContext(ctx, itemQuery,
			ji.ID,
			ji.JobID,
			ji.ItemID,
			ji.Status,
			ji.RetryCount,
			ji.ErrorMessage,
			ji.CreatedAt,
			ji.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to create job item",
				"job_id", ji.JobID,
				"item_id", ji.ItemID,
				"error", err)
			return MapError(err)
		}
	}

	return nil
}

// GetJob retrieves a job by its ID
func (s *PostgresJobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, status, total_items, completed_items, failed_items, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	var job domain.Job
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.Status,
		&job.TotalItems,
		&job.CompletedItems,
		&job.FailedItems,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, MapError(err)
	}

	return &job, nil
}

// GetJobItemByItemID retrieves the job item mirroring the given item
func (s *PostgresJobStore) GetJobItemByItemID(ctx context.Context, itemID uuid.UUID) (*domain.JobItem, error) {
	query := `
		SELECT id, job_id, item_id, status, retry_count, error_message, created_at, updated_at
		FROM job_items
		WHERE item_id = $1
	`

	ji, err := scanJobItem(s.db.QueryRowContext(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobItemNotFound
		}
		return nil, MapError(err)
	}

	return ji, nil
}

// GetJobItems retrieves all child job items of a job
func (s *PostgresJobStore) GetJobItems(ctx context.Context, jobID uuid.UUID) ([]*domain.JobItem, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, job_id, item_id, status, retry_count, error_message, created_at, updated_at
		FROM job_items
		WHERE job_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		log.Error("failed to query job items",
			"job_id", jobID,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.JobItem
	for rows.Next() {
		ji, err := scanJobItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job item row: %w", err)
		}
		items = append(items, ji)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job item rows: %w", err)
	}

	return items, nil
}

// UpdateJobItemByItemID applies a partial update to the job item mirroring
// the given item. Items without a job item are a no-op.
func (s *PostgresJobStore) UpdateJobItemByItemID(
	ctx context.Context,
	itemID uuid.UUID,
	update store.JobItemUpdate,
) error {
	log := logger.FromContext(ctx)

	var assignments []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
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

	if len(assignments) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())

	args = append(args, itemID)
	query := fmt.Sprintf(
		"UPDATE job_items SET %s WHERE item_id = $%d",
		strings.Join(assignments, ", "),
		len(args),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to update job item",
			"item_id", itemID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// RecomputeJobStatus re-derives the parent job's status and progress counters
// from its child job items
func (s *PostgresJobStore) RecomputeJobStatus(ctx context.Context, jobID uuid.UUID) error {
	log := logger.FromContext(ctx)

	children, err := s.GetJobItems(ctx, jobID)
	if err != nil {
		return err
	}

	var completed, failed int
	for _, ji := range children {
		switch ji.Status {
		case domain.JobItemStatusComplete:
			completed++
		case domain.JobItemStatusError:
			failed++
		}
	}
	status := domain.SummarizeJobStatus(children)

	query := `
		UPDATE jobs
		SET status = $1, completed_items = $2, failed_items = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		completed,
		failed,
		time.Now().UTC(),
		jobID,
	)
	if err != nil {
		log.Error("failed to recompute job status",
			"job_id", jobID,
			"error", err)
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrJobNotFound
	}

	return nil
}

// ResetInProgressJobItems resets every in_progress job item back to pending
func (s *PostgresJobStore) ResetInProgressJobItems(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE job_items
		SET status = $1, updated_at = $2
		WHERE status = $3
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobItemStatusPending,
		time.Now().UTC(),
		domain.JobItemStatusInProgress,
	)
	if err != nil {
		log.Error("failed to reset in-progress job items", "error", err)
		return 0, MapError(err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

func scanJobItem(row rowScanner) (*domain.JobItem, error) {
	var ji domain.JobItem
	var errorMessage sql.NullString

	err := row.Scan(
		&ji.ID,
		&ji.JobID,
		&ji.ItemID,
		&ji.Status,
		&ji.RetryCount,
		&errorMessage,
		&ji.CreatedAt,
		&ji.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ji.ErrorMessage = errorMessage.String
	return &ji, nil
}

// Ensure PostgresJobStore implements store.JobStore
var _ store.JobStore = (*PostgresJobStore)(nil)
