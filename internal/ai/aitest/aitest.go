// Package aitest provides deterministic stand-ins for the AI capabilities.
package aitest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/spigell/resume-scorer/internal/ai"
)

const defaultDimensions = 256

// BagOfWords embeds text as hashed lowercase token counts. Identical texts
// always produce identical vectors and texts without shared tokens are
// orthogonal unless their hashes collide.
type BagOfWords struct {
	Dimensions int

	calls atomic.Int64
	mu    sync.Mutex
	texts []string
}

func (b *BagOfWords) Embed(_ context.Context, text string) ([]float32, error) {
	b.calls.Add(1)
	b.mu.Lock()
	b.texts = append(b.texts, text)
	b.mu.Unlock()

	dims := b.Dimensions
	if dims <= 0 {
		dims = defaultDimensions
	}

	vec := make([]float32, dims)
	for _, token := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%uint32(dims)]++
	}
	return vec, nil
}

// Calls reports how many times Embed ran.
func (b *BagOfWords) Calls() int64 {
	return b.calls.Load()
}

// Texts returns every text passed to Embed in call order.
func (b *BagOfWords) Texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts...)
}

// Failing is an embedder that always returns Err.
type Failing struct {
	Err error
}

func (f Failing) Embed(context.Context, string) ([]float32, error) {
	return nil, f.Err
}

// Classifier returns a canned response and records the last request.
type Classifier struct {
	Response string
	Err      error
	// Block makes ClassifySkills wait for context cancellation.
	Block bool

	mu    sync.Mutex
	last  *ai.SkillRequest
	calls int
}

func (c *Classifier) ClassifySkills(ctx context.Context, req ai.SkillRequest) (string, error) {
	c.mu.Lock()
	c.last = &req
	c.calls++
	c.mu.Unlock()

	if c.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if c.Err != nil {
		return "", c.Err
	}
	return c.Response, nil
}

// LastRequest returns the most recent request or nil.
func (c *Classifier) LastRequest() *ai.SkillRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Calls reports how many times the classifier was asked.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
