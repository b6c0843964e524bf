// Package openai embeds text with the OpenAI embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/logger"
)

const (
	Provider = "openai"

	defaultModel = openai.EmbeddingModelTextEmbedding3Small
)

var _ ai.Embedder = (*Embedder)(nil)

type embeddingsAPI interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Dimensions shortens vectors on models that support it. Zero keeps the
	// model default.
	Dimensions        int
	MaxRetries        int
	RequestsPerMinute int
}

type Embedder struct {
	embeddings embeddingsAPI
	model      string
	dimensions int
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewEmbedder(cfg *Config, log *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	client := openai.NewClient(opts...)
	return newEmbedder(&client.Embeddings, cfg, log), nil
}

func newEmbedder(embeddings embeddingsAPI, cfg *Config, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(defaultModel)
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Embedder{
		embeddings: embeddings,
		model:      model,
		dimensions: cfg.Dimensions,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.WithFields(log, logger.CommonFields(Provider, model)...),
	}
}

// Embed creates an embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if resp == nil || len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data returned")
	}

	embedding64 := resp.Data[0].Embedding
	embedding32 := make([]float32, len(embedding64))
	for i, v := range embedding64 {
		embedding32[i] = float32(v)
	}

	e.logger.Debug("embedding created",
		zap.Int("text_length", len(text)),
		zap.Int("dimensions", len(embedding32)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
	)

	return embedding32, nil
}

func (e *Embedder) Model() string {
	return e.model
}
