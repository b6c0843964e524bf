package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.Score("ok", time.Second)
	r.DimensionFailure("skills", "abort")
	r.SkillGap("fallback", "unavailable")
	r.EmbeddingCache("hit")
	r.CandidateStarted()
	r.CandidateDone()

	if r.Registry() != nil {
		t.Fatalf("expected nil registry for nil recorder")
	}
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "none.prom")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorderCounts(t *testing.T) {
	t.Parallel()

	r := New()
	r.Score("ok", 10*time.Millisecond)
	r.Score("ok", 20*time.Millisecond)
	r.Score("error", time.Millisecond)
	r.SkillGap("classifier", "ok")
	r.EmbeddingCache("miss")
	r.EmbeddingCache("hit")
	r.EmbeddingCache("hit")
	r.CandidateStarted()
	r.CandidateStarted()
	r.CandidateDone()

	if got := testutil.ToFloat64(r.ScoreCounter().WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok scores, got %v", got)
	}
	if got := testutil.ToFloat64(r.ScoreCounter().WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 failed score, got %v", got)
	}
	if got := testutil.ToFloat64(r.SkillGapCounter().WithLabelValues("classifier", "ok")); got != 1 {
		t.Fatalf("expected 1 classifier gap, got %v", got)
	}
	if got := testutil.ToFloat64(r.EmbeddingCacheCounter().WithLabelValues("hit")); got != 2 {
		t.Fatalf("expected 2 cache hits, got %v", got)
	}
	if got := testutil.ToFloat64(r.CandidatesInFlight()); got != 1 {
		t.Fatalf("expected 1 candidate in flight, got %v", got)
	}
}

func TestRecordersAreIsolated(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	a.DimensionFailure("education", "degrade")

	if got := testutil.ToFloat64(b.DimensionFailureCounter().WithLabelValues("education", "degrade")); got != 0 {
		t.Fatalf("expected separate registries, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := New()
	r.SkillGap("fallback", "malformed")

	path := filepath.Join(t.TempDir(), "scorer.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `resume_scorer_skill_gap_total{reason="malformed",source="fallback"} 1`) {
		t.Fatalf("skill gap sample missing from textfile:\n%s", data)
	}
}
