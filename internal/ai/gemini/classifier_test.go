package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
)

type stubGenerator struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, prompt string) (string, error) {
	s.lastSystem = system
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestClassifierReturnsRawResponse(t *testing.T) {
	raw := "```json\n{\"missing_skills\": [\"Excel\"], \"extra_skills\": []}\n```"
	stub := &stubGenerator{response: raw}
	classifier := NewClassifier(stub, zap.NewNop(), 0)

	got, err := classifier.ClassifySkills(context.Background(), ai.SkillRequest{
		RequiredSkills:  []string{"SQL", "Excel"},
		CandidateSkills: []string{"Python", "SQL"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != raw {
		t.Fatalf("expected raw response to pass through, got %q", got)
	}

	if !strings.Contains(stub.lastPrompt, "Given the following job skills: SQL, Excel,") {
		t.Fatalf("required skills missing from prompt: %s", stub.lastPrompt)
	}

	if !strings.Contains(stub.lastPrompt, "the following candidate skills: Python, SQL,") {
		t.Fatalf("candidate skills missing from prompt: %s", stub.lastPrompt)
	}

	if strings.Contains(stub.lastPrompt, "{{") {
		t.Fatalf("unreplaced placeholder in prompt: %s", stub.lastPrompt)
	}

	if stub.lastSystem == "" {
		t.Fatalf("expected system instruction to be sent")
	}
}

func TestClassifierPropagatesErrors(t *testing.T) {
	boom := errors.New("unavailable")
	classifier := NewClassifier(&stubGenerator{err: boom}, nil, 10)

	if _, err := classifier.ClassifySkills(context.Background(), ai.SkillRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestBuildPromptFallbackTemplate(t *testing.T) {
	original := promptTemplate
	promptTemplate = "  "
	defer func() { promptTemplate = original }()

	prompt := buildPrompt([]string{"Go"}, []string{"Rust", "C"})
	if prompt != "Job skills: Go\nCandidate skills: Rust, C\n\nJSON Response:" {
		t.Fatalf("unexpected fallback prompt: %q", prompt)
	}
}
