// Package embedcache memoizes embedding vectors. Job-side texts are identical
// for every candidate in a batch, so a ranking run embeds them once.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/metrics"
)

// Embedder serves vectors from a Store and falls through to the wrapped
// embedder on a miss. Store failures are logged and never fail a call.
type Embedder struct {
	next    ai.Embedder
	store   Store
	model   string
	logger  *zap.Logger
	metrics *metrics.Recorder
	group   singleflight.Group
}

type Deps struct {
	Store   Store
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Wrap caches next. model becomes part of the key, so switching models never
// returns stale vectors.
func Wrap(next ai.Embedder, model string, deps *Deps) *Embedder {
	if deps == nil {
		deps = &Deps{}
	}
	store := deps.Store
	if store == nil {
		store = NewMemory()
	}

	return &Embedder{
		next:    next,
		store:   store,
		model:   model,
		logger:  logger.WithFields(deps.Logger, zap.String("component", "embedcache")),
		metrics: deps.Metrics,
	}
}

// Key is the cache key for text under model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := Key(e.model, text)

	vec, ok, err := e.store.Get(ctx, key)
	switch {
	case err != nil:
		e.metrics.EmbeddingCache("error")
		e.logger.Warn("embedding cache read failed", zap.Error(err))
	case ok:
		e.metrics.EmbeddingCache("hit")
		return vec, nil
	default:
		e.metrics.EmbeddingCache("miss")
	}

	// Concurrent misses for the same text share one upstream call.
	v, err, _ := e.group.Do(key, func() (any, error) {
		vec, err := e.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if setErr := e.store.Set(ctx, key, vec); setErr != nil {
			e.metrics.EmbeddingCache("error")
			e.logger.Warn("embedding cache write failed", zap.Error(setErr))
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}

	return append([]float32(nil), v.([]float32)...), nil
}
