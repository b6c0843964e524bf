package filtering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/recruit"
	"github.com/spigell/resume-scorer/internal/scoring"
)

type failedFilter struct {
	toggle
	keep bool
}

// NewFailed creates a filter that removes candidates that could not be scored.
func NewFailed() Filter {
	return &failedFilter{}
}

func (f *failedFilter) Name() string { return "failed" }

func (f *failedFilter) Validate(cfg *Config) error {
	f.keep = cfg != nil && cfg.KeepFailed
	return nil
}

func (f *failedFilter) Apply(_ context.Context, deps Deps, r *scoring.Rankings) (*scoring.Rankings, Step, error) {
	initial := r.Len()
	if f.keep {
		return r, Step{Initial: initial, Left: initial}, nil
	}

	dropped := r.Keep(func(item *scoring.Ranking) bool { return item.Err == nil })
	if len(dropped) > 0 {
		deps.Logger.Warn("dropping candidates that could not be scored",
			zap.Strings("candidates", dropped),
			zap.Int("candidates_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(dropped), Left: r.Len()}, nil
}

func (f *failedFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"keep_failed": strconv.FormatBool(f.keep)},
	}
}

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes candidates already reviewed for the job.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, r *scoring.Rankings) (*scoring.Rankings, Step, error) {
	initial := r.Len()
	if f.path == "" {
		return r, Step{Initial: initial, Left: initial}, nil
	}

	reviewed, err := recruit.LoadReviewed(f.path)
	if err != nil {
		return r, Step{}, fmt.Errorf("getting reviewed candidates from file: %w", err)
	}

	removed := r.Exclude(reviewed.CandidateIDs(r.JobID))
	if len(removed) > 0 {
		deps.Logger.Info("excluding candidates based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_candidates", removed),
			zap.Int("candidates_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(removed), Left: r.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type minScoreFilter struct {
	toggle
	min float64
}

// NewMinScore creates a filter that removes candidates below the configured overall score.
func NewMinScore() Filter {
	return &minScoreFilter{}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Validate(cfg *Config) error {
	f.min = 0
	if cfg == nil {
		return nil
	}
	if cfg.MinScore < 0 || cfg.MinScore > 100 {
		return fmt.Errorf("minimum score must be within [0, 100], got %v", cfg.MinScore)
	}
	f.min = cfg.MinScore
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, deps Deps, r *scoring.Rankings) (*scoring.Rankings, Step, error) {
	initial := r.Len()
	if f.min == 0 {
		return r, Step{Initial: initial, Left: initial}, nil
	}

	dropped := r.Keep(func(item *scoring.Ranking) bool {
		return item.Err != nil || item.Overall() >= f.min
	})
	if len(dropped) > 0 {
		deps.Logger.Info("excluding candidates below minimum score",
			zap.Float64("min_score", f.min),
			zap.Strings("excluded_candidates", dropped),
			zap.Int("candidates_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(dropped), Left: r.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min_score": strconv.FormatFloat(f.min, 'f', 2, 64)},
	}
}

type topFilter struct {
	toggle
	top int
}

// NewTop creates a filter that keeps only the best N candidates.
func NewTop() Filter {
	return &topFilter{}
}

func (f *topFilter) Name() string { return "top" }

func (f *topFilter) Validate(cfg *Config) error {
	f.top = 0
	if cfg == nil {
		return nil
	}
	if cfg.Top < 0 {
		return errors.New("top must not be negative")
	}
	f.top = cfg.Top
	return nil
}

func (f *topFilter) Apply(_ context.Context, deps Deps, r *scoring.Rankings) (*scoring.Rankings, Step, error) {
	initial := r.Len()
	if f.top == 0 || initial <= f.top {
		return r, Step{Initial: initial, Left: initial}, nil
	}

	position := 0
	dropped := r.Keep(func(*scoring.Ranking) bool {
		position++
		return position <= f.top
	})
	deps.Logger.Debug("keeping top candidates",
		zap.Int("top", f.top),
		zap.Strings("excluded_candidates", dropped),
	)

	return r, Step{Initial: initial, Dropped: len(dropped), Left: r.Len()}, nil
}

func (f *topFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"top": strconv.Itoa(f.top)},
	}
}
