package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeResponse struct {
	generate *genai.GenerateContentResponse
	embed    *genai.EmbedContentResponse
	err      error
}

type callRecord struct {
	model    string
	text     string
	generate *genai.GenerateContentConfig
	embed    *genai.EmbedContentConfig
}

type fakeModels struct {
	mu    sync.Mutex
	calls []callRecord
	queue []fakeResponse
}

func (f *fakeModels) enqueue(resp fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, resp)
}

func (f *fakeModels) next(record callRecord) (fakeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, record)
	if len(f.queue) == 0 {
		return fakeResponse{}, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res, nil
}

func firstText(contents []*genai.Content) string {
	if len(contents) == 0 || contents[0] == nil || len(contents[0].Parts) == 0 {
		return ""
	}
	return contents[0].Parts[0].Text
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	res, err := f.next(callRecord{model: model, text: firstText(contents), generate: config})
	if err != nil {
		return nil, err
	}
	return res.generate, res.err
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	res, err := f.next(callRecord{model: model, text: firstText(contents), embed: config})
	if err != nil {
		return nil, err
	}
	return res.embed, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func stubWait(t *testing.T) *[]time.Duration {
	t.Helper()
	original := wait
	var waits []time.Duration
	wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { wait = original })
	return &waits
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	waits := stubWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models.enqueue(fakeResponse{err: tempErr})
	models.enqueue(fakeResponse{generate: textResponse("retry ok")})

	g := newGenerator(models, &Config{Model: "gemini-pro", MaxRetries: 2}, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}

	if len(*waits) != 1 || (*waits)[0] != time.Second {
		t.Fatalf("expected a single 1s backoff, got %v", *waits)
	}

	for _, call := range models.calls {
		if call.model != "gemini-pro" {
			t.Fatalf("unexpected model: %q", call.model)
		}
		if call.generate == nil || call.generate.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.generate.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if call.text != "message" {
			t.Fatalf("unexpected message: %q", call.text)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	stubWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models.enqueue(fakeResponse{err: tempErr})
	models.enqueue(fakeResponse{err: tempErr})

	g := newGenerator(models, &Config{MaxRetries: 2}, zap.NewNop())

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected wrapped api error, got %v", err)
	}

	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	waits := stubWait(t)

	models := &fakeModels{}
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	models.enqueue(fakeResponse{err: quotaErr})

	g := newGenerator(models, &Config{MaxRetries: 3}, zap.NewNop())

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
	if len(*waits) != 0 {
		t.Fatalf("expected no backoff, got %v", *waits)
	}
}

func TestGeneratorHonorsShortQuotaHint(t *testing.T) {
	waits := stubWait(t)

	models := &fakeModels{}
	models.enqueue(fakeResponse{err: genai.APIError{Code: http.StatusTooManyRequests, Message: "Please retry in 2.5s."}})
	models.enqueue(fakeResponse{generate: textResponse("{}")})

	g := newGenerator(models, &Config{}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "", "msg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s wait, got %v", *waits)
	}
	if models.calls[0].generate.SystemInstruction != nil {
		t.Fatalf("expected no system instruction for empty system prompt")
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	stubWait(t)

	models := &fakeModels{}
	models.enqueue(fakeResponse{err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}})

	g := newGenerator(models, &Config{MaxRetries: 5}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorRejectsEmptyInputAndOutput(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(fakeResponse{generate: &genai.GenerateContentResponse{}})

	g := newGenerator(models, &Config{}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "sys", "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for empty response")
	}

	var nilGenerator *Generator
	if _, err := nilGenerator.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error for nil generator")
	}
}

func TestGeneratorEmbed(t *testing.T) {
	stubWait(t)

	models := &fakeModels{}
	models.enqueue(fakeResponse{err: genai.APIError{Code: http.StatusServiceUnavailable}})
	models.enqueue(fakeResponse{embed: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
	}})
	models.enqueue(fakeResponse{embed: &genai.EmbedContentResponse{}})

	g := newGenerator(models, &Config{EmbeddingModel: "embed-x"}, zap.NewNop())

	vec, err := g.Embed(context.Background(), "Python, SQL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Fatalf("unexpected vector: %v", vec)
	}

	call := models.calls[1]
	if call.model != "embed-x" || call.text != "Python, SQL" {
		t.Fatalf("unexpected embed call: %+v", call)
	}
	if call.embed == nil || call.embed.TaskType != "SEMANTIC_SIMILARITY" {
		t.Fatalf("expected semantic similarity task type, got %+v", call.embed)
	}

	if _, err := g.Embed(context.Background(), "again"); err == nil {
		t.Fatal("expected error for empty embeddings")
	}
}

func TestGeneratorStopsWhenContextCancelled(t *testing.T) {
	original := wait
	t.Cleanup(func() { wait = original })
	wait = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	models := &fakeModels{}
	models.enqueue(fakeResponse{err: genai.APIError{Code: http.StatusInternalServerError}})

	g := newGenerator(models, &Config{MaxRetries: 3}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.GenerateContent(ctx, "sys", "msg")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGeneratorDefaults(t *testing.T) {
	t.Parallel()

	g := newGenerator(&fakeModels{}, &Config{RequestsPerMinute: 120}, nil)
	if g.Model() != defaultModel || g.EmbeddingModel() != defaultEmbeddingModel {
		t.Fatalf("unexpected defaults: %q %q", g.Model(), g.EmbeddingModel())
	}
	if g.maxRetries != defaultMaxRetries {
		t.Fatalf("expected default retries, got %d", g.maxRetries)
	}
	if got := g.limiter.Limit(); got != 2 {
		t.Fatalf("expected 2 requests per second, got %v", got)
	}
}
