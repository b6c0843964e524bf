package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/ai/gemini"
	"github.com/spigell/resume-scorer/internal/ai/openai"
	"github.com/spigell/resume-scorer/internal/embedcache"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/metrics"
	"github.com/spigell/resume-scorer/internal/scoring"
	"github.com/spigell/resume-scorer/internal/secrets"
	"github.com/spigell/resume-scorer/internal/similarity"
	"github.com/spigell/resume-scorer/internal/skillgap"
)

const (
	geminiKeyEnv = "GEMINI_API_KEY"
	openaiKeyEnv = "OPENAI_API_KEY"
)

// stack holds the collaborators shared by the score and rank commands.
type stack struct {
	config  *Config
	logger  *zap.Logger
	metrics *metrics.Recorder

	gemini func() (*gemini.Generator, error)
	redis  *redis.Client
}

func newStack(ctx context.Context, config *Config, log *zap.Logger) *stack {
	s := &stack{
		config:  config,
		logger:  log,
		metrics: metrics.New(),
	}

	s.gemini = sync.OnceValues(func() (*gemini.Generator, error) {
		return newGeminiGenerator(ctx, config.Gemini, log)
	})

	return s
}

func (s *stack) Close() {
	if s.redis == nil {
		return
	}
	if err := s.redis.Close(); err != nil {
		s.logger.Warn("closing redis client", zap.Error(err))
	}
}

// scorer wires similarity, skill gap and the embedder of the configured
// provider into a scoring.Scorer.
func (s *stack) scorer() (*scoring.Scorer, error) {
	embedder, err := s.embedder()
	if err != nil {
		return nil, err
	}

	gaps, err := s.skillGap()
	if err != nil {
		return nil, err
	}

	return scoring.New(
		&scoring.Options{DegradeUnavailable: s.config.DegradeUnavailable},
		&scoring.Deps{
			Similarity: similarity.New(embedder, s.logger),
			SkillGap:   gaps,
			Logger:     s.logger,
			Metrics:    s.metrics,
		},
	), nil
}

// embedder returns the provider embedder behind the configured cache. The
// provider client is built on first use so commands that never embed do not
// require an API key.
func (s *stack) embedder() (ai.Embedder, error) {
	store, err := s.cacheStore()
	if err != nil {
		return nil, err
	}

	wrap := func(next ai.Embedder, model string) ai.Embedder {
		if store == nil {
			return next
		}
		return embedcache.Wrap(next, model, &embedcache.Deps{
			Store:   store,
			Logger:  s.logger,
			Metrics: s.metrics,
		})
	}

	switch s.config.Provider {
	case gemini.Provider:
		return ai.Lazy(func(context.Context) (ai.Embedder, error) {
			generator, err := s.gemini()
			if err != nil {
				return nil, err
			}
			return wrap(generator, generator.EmbeddingModel()), nil
		}), nil
	case openai.Provider:
		return ai.Lazy(func(context.Context) (ai.Embedder, error) {
			embedder, err := newOpenAIEmbedder(s.config.OpenAI, s.logger)
			if err != nil {
				return nil, err
			}
			return wrap(embedder, embedder.Model()), nil
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", s.config.Provider)
	}
}

func (s *stack) cacheStore() (embedcache.Store, error) {
	if s.config.Cache == nil {
		return embedcache.NewMemory(), nil
	}

	switch s.config.Cache.Backend {
	case "none":
		return nil, nil
	case "", "memory":
		return embedcache.NewMemory(), nil
	case "redis":
		cfg := s.config.Cache.Redis
		if cfg == nil {
			return nil, errors.New("cache.redis is required for the redis backend")
		}

		opts := &redis.Options{Addr: cfg.Addr, DB: cfg.DB}
		if cfg.PasswordFile != "" {
			password, err := secrets.Load(secrets.Source{Name: "redis password", File: cfg.PasswordFile})
			if err != nil {
				return nil, err
			}
			opts.Password = password
		}

		s.redis = redis.NewClient(opts)
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = app + ":embedding:"
		}

		s.logger.Debug("using redis embedding cache",
			zap.String("addr", cfg.Addr),
			zap.Int("db", cfg.DB),
			zap.String("prefix", prefix),
			zap.Duration("ttl", cfg.TTL),
		)
		return embedcache.NewRedis(s.redis, prefix, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", s.config.Cache.Backend)
	}
}

// skillGap returns an analyzer with the Gemini classifier when it is enabled
// and a key is available. Otherwise the analyzer uses set difference only.
func (s *stack) skillGap() (*skillgap.Analyzer, error) {
	cfg := s.config.SkillGap
	if cfg == nil {
		cfg = &SkillGapConfig{}
	}

	deps := &skillgap.Deps{Logger: s.logger, Metrics: s.metrics}
	analyzerCfg := &skillgap.Config{Timeout: cfg.Timeout, MaxLogLength: cfg.MaxLogLength}

	if !cfg.Classifier {
		return skillgap.New(analyzerCfg, deps), nil
	}

	if !geminiKeySource(s.config.Gemini).Configured() {
		s.logger.Warn("skill classifier disabled, falling back to set difference",
			zap.String("reason", "gemini api key is not configured"),
			zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or gemini.api-key-file"),
		)
		return skillgap.New(analyzerCfg, deps), nil
	}

	generator, err := s.gemini()
	if err != nil {
		return nil, fmt.Errorf("building skill classifier: %w", err)
	}

	classifierLogger := logger.WithCommonFields(s.logger, gemini.Provider, generator.Model())
	deps.Classifier = gemini.NewClassifier(generator, classifierLogger, cfg.MaxLogLength)

	return skillgap.New(analyzerCfg, deps), nil
}

func geminiKeySource(cfg *GeminiConfig) secrets.Source {
	src := secrets.Source{Name: "gemini api key", Env: geminiKeyEnv}
	if cfg != nil {
		src.File = cfg.APIKeyFile
	}
	return src
}

func newGeminiGenerator(ctx context.Context, cfg *GeminiConfig, log *zap.Logger) (*gemini.Generator, error) {
	if cfg == nil {
		cfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(geminiKeySource(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w (set gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := logger.WithFields(log,
		zap.String("provider", gemini.Provider),
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	return gemini.NewGenerator(ctx, &gemini.Config{
		APIKey:            apiKey,
		Model:             cfg.Model,
		EmbeddingModel:    cfg.EmbeddingModel,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, genLogger)
}

func newOpenAIEmbedder(cfg *OpenAIConfig, log *zap.Logger) (*openai.Embedder, error) {
	if cfg == nil {
		cfg = &OpenAIConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "openai api key",
		Env:  openaiKeyEnv,
		File: cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set openai.api-key-file, OPENAI_API_KEY_FILE or OPENAI_API_KEY)", err)
	}

	return openai.NewEmbedder(&openai.Config{
		APIKey:            apiKey,
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		Dimensions:        cfg.Dimensions,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, logger.WithFields(log, zap.String("provider", openai.Provider)))
}

// writeMetrics dumps the run metrics in the Prometheus text format when a
// metrics file is configured.
func (s *stack) writeMetrics() {
	path := s.config.MetricsFile
	if path == "" {
		return
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		s.logger.Warn("writing metrics file", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Debug("metrics written", zap.String("path", path))
}
