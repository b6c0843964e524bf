// Package metrics keeps Prometheus instruments for scoring runs. A nil
// *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "resume_scorer"

type Recorder struct {
	registry *prometheus.Registry

	scores             *prometheus.CounterVec
	scoreDuration      prometheus.Histogram
	dimensionFailures  *prometheus.CounterVec
	skillGap           *prometheus.CounterVec
	embeddingCache     *prometheus.CounterVec
	candidatesInFlight prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		scores: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_total",
			Help:      "Candidate scoring attempts by outcome",
		}, []string{"outcome"}),
		scoreDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_duration_seconds",
			Help:      "Duration of scoring one candidate against one job",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		dimensionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dimension_failures_total",
			Help:      "Dimensions that could not be scored because embeddings were unavailable",
		}, []string{"dimension", "policy"}),
		skillGap: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_gap_total",
			Help:      "Skill gap analyses by source and reason",
		}, []string{"source", "reason"}),
		embeddingCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result",
		}, []string{"result"}),
		candidatesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "candidates_in_flight",
			Help:      "Candidates currently being scored",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Score records a finished scoring call.
func (r *Recorder) Score(outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.scores.WithLabelValues(outcome).Inc()
	r.scoreDuration.Observe(took.Seconds())
}

// DimensionFailure records a dimension lost to an embedding failure.
func (r *Recorder) DimensionFailure(dimension, policy string) {
	if r == nil {
		return
	}
	r.dimensionFailures.WithLabelValues(dimension, policy).Inc()
}

// SkillGap records which path produced a skill gap.
func (r *Recorder) SkillGap(source, reason string) {
	if r == nil {
		return
	}
	r.skillGap.WithLabelValues(source, reason).Inc()
}

// EmbeddingCache records a cache lookup result: hit, miss or error.
func (r *Recorder) EmbeddingCache(result string) {
	if r == nil {
		return
	}
	r.embeddingCache.WithLabelValues(result).Inc()
}

// CandidateStarted and CandidateDone track batch concurrency.
func (r *Recorder) CandidateStarted() {
	if r == nil {
		return
	}
	r.candidatesInFlight.Inc()
}

func (r *Recorder) CandidateDone() {
	if r == nil {
		return
	}
	r.candidatesInFlight.Dec()
}

func (r *Recorder) ScoreCounter() *prometheus.CounterVec { return r.scores }
func (r *Recorder) DimensionFailureCounter() *prometheus.CounterVec { return r.dimensionFailures }
func (r *Recorder) SkillGapCounter() *prometheus.CounterVec { return r.skillGap }
func (r *Recorder) EmbeddingCacheCounter() *prometheus.CounterVec { return r.embeddingCache }
func (r *Recorder) CandidatesInFlight() prometheus.Gauge { return r.candidatesInFlight }

// WriteTextfile dumps all metrics in the text exposition format, suitable for
// the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
