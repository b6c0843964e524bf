package gemini

import (
	"context"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

// Classifier asks Gemini to split two skill lists into missing and extra
// skills. It returns the raw model output; parsing is left to the caller.
type Classifier struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.SkillClassifier = (*Classifier)(nil)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200

	systemInstruction = "You compare skill lists for technical recruiting. Answer with JSON only."
)

func NewClassifier(generator contentGenerator, log *zap.Logger, maxLogLength int) *Classifier {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Classifier{
		generator: generator,
		logger:    logger.WithFields(log, zap.String("component", "skill-classifier")),
		maxLogLen: maxLogLength,
	}
}

func (c *Classifier) ClassifySkills(ctx context.Context, req ai.SkillRequest) (string, error) {
	prompt := buildPrompt(req.RequiredSkills, req.CandidateSkills)

	c.logger.Debug("gemini generate content request",
		zap.Int("required_skills", len(req.RequiredSkills)),
		zap.Int("candidate_skills", len(req.CandidateSkills)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return "", err
	}

	c.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	return raw, nil
}

func buildPrompt(required, candidate []string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job skills: {{REQUIRED_SKILLS}}\nCandidate skills: {{CANDIDATE_SKILLS}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{REQUIRED_SKILLS}}", strings.Join(required, ", "))
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_SKILLS}}", strings.Join(candidate, ", "))
	return prompt
}
