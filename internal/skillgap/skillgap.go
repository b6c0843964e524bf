// Package skillgap works out which required skills a candidate lacks and which
// of their skills the job does not ask for.
package skillgap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/metrics"
	"github.com/spigell/resume-scorer/internal/utils"
)

// ErrClassifierUnavailable wraps failures of the external classifier call.
var ErrClassifierUnavailable = errors.New("skill classifier unavailable")

const DefaultTimeout = 20 * time.Second

// Source tells which path produced a Gap.
type Source string

const (
	SourceClassifier Source = "classifier"
	SourceFallback   Source = "fallback"
)

// Gap is the skill delta between a job and a candidate.
type Gap struct {
	Missing []string `json:"missing_skills"`
	Extra   []string `json:"extra_skills"`
	Source  Source   `json:"source"`
}

type Config struct {
	// Timeout bounds a single classifier call. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxLogLength limits raw classifier output in debug logs.
	MaxLogLength int
}

type Deps struct {
	// Classifier is optional; without it only set difference is used.
	Classifier ai.SkillClassifier
	Logger     *zap.Logger
	Metrics    *metrics.Recorder
}

// Analyzer computes skill gaps. It never fails: any classifier problem falls
// back to Difference.
type Analyzer struct {
	classifier   ai.SkillClassifier
	timeout      time.Duration
	maxLogLength int
	logger       *zap.Logger
	metrics      *metrics.Recorder
}

func New(cfg *Config, deps *Deps) *Analyzer {
	a := &Analyzer{timeout: DefaultTimeout, maxLogLength: 200}
	if cfg != nil {
		if cfg.Timeout > 0 {
			a.timeout = cfg.Timeout
		}
		if cfg.MaxLogLength > 0 {
			a.maxLogLength = cfg.MaxLogLength
		}
	}

	var log *zap.Logger
	if deps != nil {
		a.classifier = deps.Classifier
		a.metrics = deps.Metrics
		log = deps.Logger
	}
	a.logger = logger.WithFields(log, zap.String("component", "skillgap"))

	return a
}

// Analyze returns the missing and extra skills of candidate against required.
func (a *Analyzer) Analyze(ctx context.Context, required, candidate []string) Gap {
	required = Unique(required)
	candidate = Unique(candidate)

	if a == nil || a.classifier == nil {
		return Difference(required, candidate)
	}

	if len(required) == 0 || len(candidate) == 0 {
		a.metrics.SkillGap(string(SourceFallback), "empty_input")
		return Difference(required, candidate)
	}

	partition, err := a.classify(ctx, required, candidate)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrClassifierUnavailable) {
			reason = "unavailable"
		}
		a.logger.Warn("skill classifier failed, using set difference",
			zap.String("reason", reason),
			zap.Error(err),
		)
		a.metrics.SkillGap(string(SourceFallback), reason)
		return Difference(required, candidate)
	}

	a.metrics.SkillGap(string(SourceClassifier), "ok")
	return Gap{
		Missing: Unique(partition.Missing),
		Extra:   Unique(partition.Extra),
		Source:  SourceClassifier,
	}
}

func (a *Analyzer) classify(ctx context.Context, required, candidate []string) (Partition, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.classifier.ClassifySkills(ctx, ai.SkillRequest{
		RequiredSkills:  required,
		CandidateSkills: candidate,
	})
	if err != nil {
		return Partition{}, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}

	a.logger.Debug("skill classifier response",
		zap.Int("required", len(required)),
		zap.Int("candidate", len(candidate)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLength)),
	)

	return ParsePartition(raw)
}

// Difference is the deterministic gap: exact, case-sensitive set difference in
// both directions. Output keeps the order in which skills first appear.
func Difference(required, candidate []string) Gap {
	required = Unique(required)
	candidate = Unique(candidate)

	return Gap{
		Missing: subtract(required, candidate),
		Extra:   subtract(candidate, required),
		Source:  SourceFallback,
	}
}

// Unique trims skills, drops blanks and duplicates, and keeps first-seen order.
// The result is never nil.
func Unique(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		out = append(out, skill)
	}
	return out
}

func subtract(from, other []string) []string {
	exclude := make(map[string]struct{}, len(other))
	for _, skill := range other {
		exclude[skill] = struct{}{}
	}

	out := make([]string, 0, len(from))
	for _, skill := range from {
		if _, ok := exclude[skill]; !ok {
			out = append(out, skill)
		}
	}
	return out
}
