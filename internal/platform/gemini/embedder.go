package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/clippings/clippings-api/internal/config"
	"github.com/clippings/clippings-api/internal/generation"
)

// GeminiEmbedder implements the generation.EmbeddingProvider interface using
// Google's Gemini embedding models.
type GeminiEmbedder struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates a new GeminiEmbedder from the LLM configuration.
func NewGeminiEmbedder(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiEmbedder, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: embedding model cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &GeminiEmbedder{
		logger: logger.With("component", "gemini_embedder"),
		client: client,
		model:  cfg.EmbeddingModel,
	}, nil
}

// Embed computes one embedding vector per input text, in input order.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding API call failed: %w", err)
	}

	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			generation.ErrInvalidResponse, len(texts), got)
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", generation.ErrInvalidResponse, i)
		}
		vectors[i] = embedding.Values
	}

	e.logger.Debug("computed embeddings",
		"text_count", len(texts),
		"dimensions", len(vectors[0]))

	return vectors, nil
}

// Ensure GeminiEmbedder implements generation.EmbeddingProvider
var _ generation.EmbeddingProvider = (*GeminiEmbedder)(nil)
