package scoring

import (
	"context"
	"errors"
	"runtime"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/metrics"
	"github.com/spigell/resume-scorer/internal/recruit"
)

type candidateScorer interface {
	Score(ctx context.Context, candidate *recruit.Candidate, job *recruit.Job) (*Result, error)
}

// Ranker scores every applicant of a job on a bounded pool of goroutines.
type Ranker struct {
	scorer  candidateScorer
	workers int
	logger  *zap.Logger
	metrics *metrics.Recorder
	newID   func() string
}

type RankerConfig struct {
	// Workers bounds concurrent scoring. Zero means runtime.NumCPU().
	Workers int
}

func NewRanker(scorer candidateScorer, cfg *RankerConfig, log *zap.Logger, recorder *metrics.Recorder) *Ranker {
	workers := runtime.NumCPU()
	if cfg != nil && cfg.Workers > 0 {
		workers = cfg.Workers
	}

	return &Ranker{
		scorer:  scorer,
		workers: workers,
		logger:  logger.WithFields(log, zap.String("component", "ranker")),
		metrics: recorder,
		newID:   uuid.NewString,
	}
}

// Rank scores all candidates against job and returns them sorted by overall
// score. A candidate that fails to score keeps its error on the entry and does
// not stop the others; only ctx cancellation fails the batch. Nil candidates
// are skipped.
func (r *Ranker) Rank(ctx context.Context, job *recruit.Job, candidates []*recruit.Candidate) (*Rankings, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	candidates = slices.DeleteFunc(slices.Clone(candidates), func(c *recruit.Candidate) bool { return c == nil })

	rankings := &Rankings{
		RunID:    r.newID(),
		JobID:    job.ID,
		JobTitle: job.Title,
		Items:    make([]*Ranking, len(candidates)),
	}
	log := r.logger.With(logger.ScoringFields(rankings.RunID, job.ID, "")...)
	log.Info("ranking candidates", zap.Int("candidates", len(candidates)), zap.Int("workers", r.workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for idx, candidate := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r.metrics.CandidateStarted()
			defer r.metrics.CandidateDone()

			result, err := r.scorer.Score(gctx, candidate, job)
			entry := &Ranking{Candidate: candidate, Result: result, Err: err}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				entry.Error = err.Error()
				log.Warn("candidate not scored", zap.String(logger.FieldCandidate, candidate.ID), zap.Error(err))
			}
			rankings.Items[idx] = entry
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rankings.Sort()
	log.Info("ranking finished", zap.Int("scored", rankings.Scored()), zap.Int("failed", rankings.Len()-rankings.Scored()))

	return rankings, nil
}
