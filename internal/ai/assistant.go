package ai

import (
	"context"
	"sync"
)

// Embedder maps text to a fixed-length vector. Implementations must return the
// same vector for the same text while the model stays the same.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SkillRequest is the payload sent to a skill classifier.
type SkillRequest struct {
	RequiredSkills  []string `json:"required_skills"`
	CandidateSkills []string `json:"candidate_skills"`
}

// SkillClassifier asks an external model to split skills into missing and
// extra ones. It returns the raw model answer; validating it is up to the caller.
type SkillClassifier interface {
	ClassifySkills(ctx context.Context, req SkillRequest) (string, error)
}

// EmbedderFunc adapts a plain function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// LazyEmbedder builds the underlying embedder on first use and shares it
// afterwards. The constructor runs at most once; its error is returned to every
// caller.
type LazyEmbedder struct {
	once     sync.Once
	init     func(ctx context.Context) (Embedder, error)
	embedder Embedder
	err      error
}

// Lazy wraps init into a LazyEmbedder.
func Lazy(init func(ctx context.Context) (Embedder, error)) *LazyEmbedder {
	return &LazyEmbedder{init: init}
}

// Get returns the shared embedder, building it if needed.
func (l *LazyEmbedder) Get(ctx context.Context) (Embedder, error) {
	l.once.Do(func() {
		l.embedder, l.err = l.init(ctx)
	})
	return l.embedder, l.err
}

func (l *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedder, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return embedder.Embed(ctx, text)
}
