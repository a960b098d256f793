package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/platform/logger"
	"github.com/clippings/clippings-api/internal/store"
)

// PostgresContentStore implements the store.ContentStore interface using
// PostgreSQL. Embedding vectors are stored as JSONB arrays.
type PostgresContentStore struct {
	db store.DBTX
}

// NewPostgresContentStore creates a new PostgresContentStore
func NewPostgresContentStore(db store.DBTX) *PostgresContentStore {
	return &PostgresContentStore{
		db: db,
	}
}

// WithTx returns a new store bound to the given transaction.
func (s *PostgresContentStore) WithTx(tx *sql.Tx) *PostgresContentStore {
	return &PostgresContentStore{db: tx}
}

// GetMarkdown retrieves the markdown record for an item
func (s *PostgresContentStore) GetMarkdown(ctx context.Context, itemID uuid.UUID) (*domain.MarkdownRecord, error) {
	query := `
		SELECT id, item_id, content, created_at
		FROM markdown_records
		WHERE item_id = $1
	`

	var rec domain.MarkdownRecord
	err := s.db.QueryRowContext(ctx, query, itemID).Scan(
		&rec.ID,
		&rec.ItemID,
		&rec.Content,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMarkdownNotFound
		}
		return nil, MapError(err)
	}

	return &rec, nil
}

// SaveMarkdown persists a markdown record for an item. A record saved twice
// for the same item keeps the first version, preserving idempotency under
// concurrent retries.
func (s *PostgresContentStore) SaveMarkdown(ctx context.Context, record *domain.MarkdownRecord) error {
	log := logger.FromContext(ctx)

	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO markdown_records (id, item_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.ItemID,
		record.Content,
		record.CreatedAt,
	)
	if err != nil {
		log.Error("failed to save markdown record",
			"item_id", record.ItemID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetQAPairs retrieves all QA pairs stored for an item
func (s *PostgresContentStore) GetQAPairs(ctx context.Context, itemID uuid.UUID) ([]*domain.QAPair, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, item_id, question, answer,
		       question_embedding, answer_embedding, combined_embedding,
		       created_at
		FROM qa_pairs
		WHERE item_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		log.Error("failed to query QA pairs",
			"item_id", itemID,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var pairs []*domain.QAPair
	for rows.Next() {
		var pair domain.QAPair
		var questionEmb, answerEmb, combinedEmb []byte

		err := rows.Scan(
			&pair.ID,
			&pair.ItemID,
			&pair.Question,
			&pair.Answer,
			&questionEmb,
			&answerEmb,
			&combinedEmb,
			&pair.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan QA pair row: %w", err)
		}

		if pair.QuestionEmbedding, err = decodeEmbedding(questionEmb); err != nil {
			return nil, fmt.Errorf("failed to decode question embedding: %w", err)
		}
		if pair.AnswerEmbedding, err = decodeEmbedding(answerEmb); err != nil {
			return nil, fmt.Errorf("failed to decode answer embedding: %w", err)
		}
		if pair.CombinedEmbedding, err = decodeEmbedding(combinedEmb); err != nil {
			return nil, fmt.Errorf("failed to decode combined embedding: %w", err)
		}

		pairs = append(pairs, &pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating QA pair rows: %w", err)
	}

	return pairs, nil
}

// SaveQAPairs persists QA pairs, including their embedding vectors
func (s *PostgresContentStore) SaveQAPairs(ctx context.Context, pairs []*domain.QAPair) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO qa_pairs (id, item_id, question, answer,
		                      question_embedding, answer_embedding, combined_embedding,
		                      created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, pair := range pairs {
		if err := pair.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		questionEmb, err := encodeEmbedding(pair.QuestionEmbedding)
		if err != nil {
			return fmt.Errorf("failed to encode question embedding: %w", err)
		}
		answerEmb, err := encodeEmbedding(pair.AnswerEmbedding)
		if err != nil {
			return fmt.Errorf("failed to encode answer embedding: %w", err)
		}
		combinedEmb, err := encodeEmbedding(pair.CombinedEmbedding)
		if err != nil {
			return fmt.Errorf("failed to encode combined embedding: %w", err)
		}

		_, err = s.db.ExecContext(ctx, query,
			pair.ID,
			pair.ItemID,
			pair.Question,
			pair.Answer,
			questionEmb,
			answerEmb,
			combinedEmb,
			pair.CreatedAt,
		)
		if err != nil {
			log.Error("failed to save QA pair",
				"item_id", pair.ItemID,
				"pair_id", pair.ID,
				"error", err)
			return MapError(err)
		}
	}

	return nil
}

func encodeEmbedding(vector []float32) ([]byte, error) {
	if vector == nil {
		return nil, nil
	}
	return json.Marshal(vector)
}

func decodeEmbedding(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// Ensure PostgresContentStore implements store.ContentStore
var _ store.ContentStore = (*PostgresContentStore)(nil)
