package similarity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/ai/aitest"
)

func TestSimilarityEmptyInputIsZero(t *testing.T) {
	embedder := &aitest.BagOfWords{}
	engine := New(embedder, zap.NewNop())

	cases := []struct {
		name string
		a, b any
	}{
		{name: "empty and text", a: "", b: "anything"},
		{name: "text and empty", a: "anything", b: ""},
		{name: "both nil", a: nil, b: nil},
		{name: "whitespace only", a: " \n\t", b: "Go developer"},
		{name: "empty list", a: []string{}, b: "Go developer"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, err := engine.Similarity(context.Background(), tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, 0.0, score)
		})
	}

	assert.Zero(t, embedder.Calls(), "embedder must not be called for empty input")
}

func TestSimilarityEmptyInputWithoutEmbedder(t *testing.T) {
	engine := New(nil, nil)

	score, err := engine.Similarity(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	_, err = engine.Similarity(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSimilarityBoundsAndSelfSimilarity(t *testing.T) {
	engine := New(&aitest.BagOfWords{}, zap.NewNop())
	ctx := context.Background()

	corpus := []string{
		"Python, TensorFlow, PyTorch, SQL",
		"Data Scientist at Tech Company. Developed machine learning models",
		"Master of Science in Data Science from University of Data",
		"Forklift operation and warehouse inventory",
		"Pastry chef with croissant lamination experience",
	}

	for _, a := range corpus {
		self, err := engine.Similarity(ctx, a, a)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, self, 1e-9)

		for _, b := range corpus {
			score, err := engine.Similarity(ctx, a, b)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
			assert.GreaterOrEqual(t, self, score, "self similarity of %q must be maximal", a)
		}
	}
}

func TestSimilarityNormalizesBeforeEmbedding(t *testing.T) {
	embedder := &aitest.BagOfWords{}
	engine := New(embedder, zap.NewNop())

	score, err := engine.Similarity(context.Background(), "Go\n\nKubernetes", "  Go   Kubernetes ")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Equal(t, []string{"Go Kubernetes"}, embedder.Texts(), "identical normalized texts are embedded once")
}

func TestSimilarityWrapsEmbedderFailure(t *testing.T) {
	cause := errors.New("model offline")
	engine := New(aitest.Failing{Err: cause}, zap.NewNop())

	_, err := engine.Similarity(context.Background(), "Go", "Rust")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestSimilarityRejectsBrokenVectors(t *testing.T) {
	ctx := context.Background()

	empty := New(ai.EmbedderFunc(func(context.Context, string) ([]float32, error) {
		return nil, nil
	}), zap.NewNop())
	_, err := empty.Similarity(ctx, "Go", "Rust")
	assert.ErrorIs(t, err, ErrUnavailable)

	mismatched := New(ai.EmbedderFunc(func(_ context.Context, text string) ([]float32, error) {
		return make([]float32, len(text)), nil
	}), zap.NewNop())
	_, err = mismatched.Similarity(ctx, "Go", "Rust")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   []float32
		expect float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expect: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expect: 0},
		{name: "opposite clamps to zero", a: []float32{1, 1}, b: []float32{-1, -1}, expect: 0},
		{name: "zero norm", a: []float32{0, 0}, b: []float32{1, 1}, expect: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 1}, expect: 0},
		{name: "empty", a: nil, b: nil, expect: 0},
		{name: "partial", a: []float32{1, 0}, b: []float32{1, 1}, expect: 1 / math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.expect, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestCosineNeverExceedsOne(t *testing.T) {
	t.Parallel()

	vec := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	score := Cosine(vec, vec)
	assert.LessOrEqual(t, score, 1.0)
	assert.InDelta(t, 1.0, score, 1e-9)
}
