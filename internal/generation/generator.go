package generation

import "context"

// QuestionAnswer is one question/answer pair produced by the generator,
// before it is persisted as a domain.QAPair.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QAGenerator defines the interface for mining question/answer pairs from
// markdown text. This interface serves as a boundary between the application
// core and external AI/LLM services.
type QAGenerator interface {
	// GeneratePairs creates question/answer pairs from markdown text.
	// A nil error with zero pairs is a legal result: not every page yields
	// extractable Q&A content.
	GeneratePairs(ctx context.Context, markdownText string) ([]QuestionAnswer, error)
}

// EmbeddingProvider defines the interface for computing vector embeddings
// over a batch of texts. Implementations return one vector per input text,
// in input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
