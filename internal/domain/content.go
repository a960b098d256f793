package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for derived content records
var (
	ErrEmptyMarkdownID     = errors.New("markdown record ID cannot be empty")
	ErrEmptyMarkdownItemID = errors.New("markdown record item ID cannot be empty")
	ErrEmptyQAPairID       = errors.New("QA pair ID cannot be empty")
	ErrEmptyQAPairItemID   = errors.New("QA pair item ID cannot be empty")
	ErrEmptyQuestion       = errors.New("question cannot be empty")
	ErrEmptyAnswer         = errors.New("answer cannot be empty")
)

// MarkdownRecord holds the markdown rendering of an item's raw content.
// At most one record exists per item; its presence is the idempotency gate
// for the markdown extraction stage.
type MarkdownRecord struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMarkdownRecord creates a markdown record for the given item.
func NewMarkdownRecord(itemID uuid.UUID, content string) (*MarkdownRecord, error) {
	rec := &MarkdownRecord{
		ID:        uuid.New(),
		ItemID:    itemID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the MarkdownRecord has valid data.
func (r *MarkdownRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyMarkdownID
	}

	if r.ItemID == uuid.Nil {
		return ErrEmptyMarkdownItemID
	}

	return nil
}

// QAPair is one question/answer pair mined from an item's markdown, together
// with the three embedding vectors used for semantic search: one over the
// question, one over the answer, and one over the combined "Q: ...\nA: ..."
// form.
type QAPair struct {
	ID                uuid.UUID `json:"id"`
	ItemID            uuid.UUID `json:"item_id"`
	Question          string    `json:"question"`
	Answer            string    `json:"answer"`
	QuestionEmbedding []float32 `json:"question_embedding,omitempty"`
	AnswerEmbedding   []float32 `json:"answer_embedding,omitempty"`
	CombinedEmbedding []float32 `json:"combined_embedding,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewQAPair creates a QA pair for the given item. Embeddings are attached
// later by the processing phase.
func NewQAPair(itemID uuid.UUID, question, answer string) (*QAPair, error) {
	pair := &QAPair{
		ID:        uuid.New(),
		ItemID:    itemID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}

	if err := pair.Validate(); err != nil {
		return nil, err
	}

	return pair, nil
}

// Validate checks if the QAPair has valid data.
func (p *QAPair) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyQAPairID
	}

	if p.ItemID == uuid.Nil {
		return ErrEmptyQAPairItemID
	}

	if p.Question == "" {
		return ErrEmptyQuestion
	}

	if p.Answer == "" {
		return ErrEmptyAnswer
	}

	return nil
}

// CombinedText returns the concatenated form embedded alongside the
// question and answer texts.
func (p *QAPair) CombinedText() string {
	return "Q: " + p.Question + "\nA: " + p.Answer
}
