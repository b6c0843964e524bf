// Package similarity scores how close two pieces of text are using an
// injected embedding model.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/normalize"
)

// ErrUnavailable is returned when the embedding model failed or cannot be reached.
var ErrUnavailable = errors.New("similarity unavailable")

// Engine computes cosine similarity between embedded texts.
type Engine struct {
	embedder ai.Embedder
	logger   *zap.Logger
}

// New returns an Engine backed by embedder. The embedder is shared by all
// callers and must be safe for concurrent use.
func New(embedder ai.Embedder, log *zap.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		logger:   logger.WithFields(log, zap.String("component", "similarity")),
	}
}

// Similarity returns a score in [0, 1]. Inputs are normalized first; if either
// side is empty the score is 0 and the embedder is not called.
func (e *Engine) Similarity(ctx context.Context, a, b any) (float64, error) {
	left := normalize.Text(a)
	right := normalize.Text(b)
	if left == "" || right == "" {
		return 0, nil
	}

	if e == nil || e.embedder == nil {
		return 0, fmt.Errorf("%w: embedder is not configured", ErrUnavailable)
	}

	leftVec, err := e.embed(ctx, left)
	if err != nil {
		return 0, err
	}

	rightVec := leftVec
	if right != left {
		rightVec, err = e.embed(ctx, right)
		if err != nil {
			return 0, err
		}
	}

	if len(leftVec) != len(rightVec) {
		return 0, fmt.Errorf("%w: embedding dimensions differ (%d vs %d)", ErrUnavailable, len(leftVec), len(rightVec))
	}

	score := Cosine(leftVec, rightVec)
	e.logger.Debug("similarity computed",
		zap.Int("left_length", len(left)),
		zap.Int("right_length", len(right)),
		zap.Float64("score", score),
	)
	return score, nil
}

func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", ErrUnavailable)
	}
	return vec, nil
}

// Cosine returns the cosine similarity of a and b clamped to [0, 1]. Vectors of
// different length or with zero norm score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
