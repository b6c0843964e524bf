// Package scoring combines per-dimension similarity and the skill gap into a
// single candidate score for a job.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/metrics"
	"github.com/spigell/resume-scorer/internal/priority"
	"github.com/spigell/resume-scorer/internal/recruit"
	"github.com/spigell/resume-scorer/internal/similarity"
	"github.com/spigell/resume-scorer/internal/skillgap"
)

type Dimension string

const (
	DimensionSkills       Dimension = "skills"
	DimensionRequirements Dimension = "requirements"
	DimensionEducation    Dimension = "education"
)

// DimensionError reports a dimension that could not be scored.
type DimensionError struct {
	Dimension Dimension
	Err       error
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("score %s: %v", e.Dimension, e.Err)
}

func (e *DimensionError) Unwrap() error {
	return e.Err
}

// Result is the outcome of scoring one candidate against one job.
type Result struct {
	SkillsScore       int     `json:"skills_score"`
	RequirementsScore int     `json:"requirements_score"`
	EducationScore    int     `json:"education_score"`
	OverallScore      float64 `json:"overall_score"`

	MissingSkills  []string        `json:"missing_skills"`
	ExtraSkills    []string        `json:"extra_skills"`
	SkillGapSource skillgap.Source `json:"skill_gap_source"`

	Weights map[Dimension]float64 `json:"weights"`
	// Degraded lists dimensions scored as 0 because embeddings were unavailable.
	Degraded []Dimension `json:"degraded,omitempty"`
}

type similarityScorer interface {
	Similarity(ctx context.Context, a, b any) (float64, error)
}

type gapAnalyzer interface {
	Analyze(ctx context.Context, required, candidate []string) skillgap.Gap
}

type Options struct {
	// DegradeUnavailable scores a dimension as 0 instead of failing the whole
	// call when its embeddings cannot be computed.
	DegradeUnavailable bool
}

type Deps struct {
	Similarity similarityScorer
	SkillGap   gapAnalyzer
	Logger     *zap.Logger
	Metrics    *metrics.Recorder
}

type Scorer struct {
	similarity similarityScorer
	skillGap   gapAnalyzer
	degrade    bool
	logger     *zap.Logger
	metrics    *metrics.Recorder
}

func New(opts *Options, deps *Deps) *Scorer {
	s := &Scorer{
		similarity: deps.Similarity,
		skillGap:   deps.SkillGap,
		logger:     logger.WithFields(deps.Logger, zap.String("component", "scorer")),
		metrics:    deps.Metrics,
	}
	if opts != nil {
		s.degrade = opts.DegradeUnavailable
	}
	if s.skillGap == nil {
		s.skillGap = skillgap.New(nil, &skillgap.Deps{Logger: deps.Logger, Metrics: deps.Metrics})
	}
	return s
}

type comparison struct {
	dimension      Dimension
	candidate, job string
}

// Score rates candidate against job. It fails only when a dimension's
// similarity is unavailable and degradation is off, or ctx is done.
func (s *Scorer) Score(ctx context.Context, candidate *recruit.Candidate, job *recruit.Job) (*Result, error) {
	if candidate == nil {
		return nil, errors.New("candidate is required")
	}
	if job == nil {
		return nil, errors.New("job is required")
	}

	start := time.Now()
	log := s.logger.With(logger.ScoringFields("", job.ID, candidate.ID)...)

	weights := Weights(job)

	comparisons := []comparison{
		{DimensionSkills, strings.Join(candidate.Skills, ", "), strings.Join(job.Skills, ", ")},
		{DimensionRequirements, candidate.ExperienceText(), job.RequirementsText()},
		{DimensionEducation, candidate.EducationText(), job.Education},
	}

	result := &Result{Weights: weights}
	raw := make(map[Dimension]float64, len(comparisons))
	for _, cmp := range comparisons {
		sim, err := s.similarity.Similarity(ctx, cmp.candidate, cmp.job)
		if err != nil {
			if !s.degrade || ctx.Err() != nil || !errors.Is(err, similarity.ErrUnavailable) {
				s.metrics.DimensionFailure(string(cmp.dimension), "abort")
				s.metrics.Score("error", time.Since(start))
				return nil, &DimensionError{Dimension: cmp.dimension, Err: err}
			}

			log.Warn("dimension scored as zero",
				zap.String("dimension", string(cmp.dimension)),
				zap.Error(err),
			)
			s.metrics.DimensionFailure(string(cmp.dimension), "degrade")
			result.Degraded = append(result.Degraded, cmp.dimension)
			sim = 0
		}
		raw[cmp.dimension] = sim * 100
	}

	// Summed in a fixed order so repeated runs are bit-identical.
	overall := 0.0
	for _, cmp := range comparisons {
		overall += raw[cmp.dimension] * weights[cmp.dimension]
	}

	result.SkillsScore = roundInt(raw[DimensionSkills])
	result.RequirementsScore = roundInt(raw[DimensionRequirements])
	result.EducationScore = roundInt(raw[DimensionEducation])
	result.OverallScore = roundTo(math.Min(math.Max(overall, 0), 100), 2)

	gap := s.skillGap.Analyze(ctx, job.Skills, candidate.Skills)
	result.MissingSkills = gap.Missing
	result.ExtraSkills = gap.Extra
	result.SkillGapSource = gap.Source

	s.metrics.Score("ok", time.Since(start))
	log.Debug("candidate scored",
		zap.Float64("overall", result.OverallScore),
		zap.Int("skills", result.SkillsScore),
		zap.Int("requirements", result.RequirementsScore),
		zap.Int("education", result.EducationScore),
		zap.String("skill_gap_source", string(gap.Source)),
	)

	return result, nil
}

// Weights returns the normalized dimension weights for job's priorities.
func Weights(job *recruit.Job) map[Dimension]float64 {
	return priority.Normalize(map[Dimension]float64{
		DimensionSkills:       job.SkillsPriority.Weight(),
		DimensionRequirements: job.RequirementsPriority.Weight(),
		DimensionEducation:    job.EducationPriority.Weight(),
	})
}

// roundInt and roundTo round half to even.
func roundInt(v float64) int {
	return int(math.RoundToEven(v))
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}
