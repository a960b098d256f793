package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/clippings/clippings-api/internal/config"
	"github.com/clippings/clippings-api/internal/generation"
)

// Retry settings for Gemini API calls. These cover transient API failures
// only; the queue engine applies its own item-level retry policy on top.
const (
	maxAPIRetries  = 3
	baseRetryDelay = 2 * time.Second
)

// qaPromptTemplate instructs the model to mine question/answer pairs from
// markdown and reply with bare JSON so the response can be unmarshalled
// directly.
const qaPromptTemplate = `You are extracting question/answer pairs from a web article for a personal knowledge base.

Read the following markdown and produce self-contained question/answer pairs covering its key facts. Each question must be answerable from the article alone. If the article contains no extractable factual content, return an empty list.

Respond with JSON only, no code fences, in this exact shape:
{"pairs": [{"question": "...", "answer": "..."}]}

Article:
{{.MarkdownText}}
`

// responseSchema is the JSON shape the model is instructed to reply with.
type responseSchema struct {
	Pairs []pairSchema `json:"pairs"`
}

type pairSchema struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type promptData struct {
	MarkdownText string
}

// GeminiGenerator implements the generation.QAGenerator interface using
// Google's Gemini API.
type GeminiGenerator struct {
	logger         *slog.Logger
	client         *genai.Client
	model          string
	promptTemplate *template.Template
}

// NewGeminiGenerator creates a new GeminiGenerator from the LLM configuration.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("qa").Parse(qaPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:         logger.With("component", "gemini_generator"),
		client:         client,
		model:          cfg.ModelName,
		promptTemplate: promptTemplate,
	}, nil
}

// GeneratePairs creates question/answer pairs from markdown text.
func (g *GeminiGenerator) GeneratePairs(ctx context.Context, markdownText string) ([]generation.QuestionAnswer, error) {
	if markdownText == "" {
		return nil, fmt.Errorf("%w: markdown text cannot be empty", generation.ErrGenerationFailed)
	}

	var promptBuffer bytes.Buffer
	if err := g.promptTemplate.Execute(&promptBuffer, promptData{MarkdownText: markdownText}); err != nil {
		return nil, fmt.Errorf("failed to execute prompt template: %w", err)
	}

	response, err := g.callWithRetry(ctx, promptBuffer.String())
	if err != nil {
		return nil, err
	}

	pairs := make([]generation.QuestionAnswer, 0, len(response.Pairs))
	for i, pair := range response.Pairs {
		if pair.Question == "" {
			return nil, fmt.Errorf("%w: pair %d missing question", generation.ErrInvalidResponse, i)
		}
		if pair.Answer == "" {
			return nil, fmt.Errorf("%w: pair %d missing answer", generation.ErrInvalidResponse, i)
		}
		pairs = append(pairs, generation.QuestionAnswer{
			Question: pair.Question,
			Answer:   pair.Answer,
		})
	}

	g.logger.Debug("generated QA pairs",
		"pair_count", len(pairs),
		"markdown_length", len(markdownText))

	return pairs, nil
}

// callWithRetry makes a Gemini API call, retrying transient failures with
// exponential backoff and jitter. Permanent failures (blocked content,
// malformed responses) are returned immediately.
func (g *GeminiGenerator) callWithRetry(ctx context.Context, prompt string) (*responseSchema, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		response, err := g.callOnce(ctx, prompt)
		if err == nil {
			return response, nil
		}

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return nil, err
		}

		if attempt >= maxAPIRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxAPIRetries, err)
		}

		backoff := float64(baseRetryDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		g.logger.Warn("Gemini API call failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

func (g *GeminiGenerator) callOnce(ctx context.Context, prompt string) (*responseSchema, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: response blocked by safety filters", generation.ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}

	return &parsed, nil
}

// Ensure GeminiGenerator implements generation.QAGenerator
var _ generation.QAGenerator = (*GeminiGenerator)(nil)
