package skillgap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedResponse marks a classifier answer that does not match the
// expected {"missing_skills": [...], "extra_skills": [...]} shape.
var ErrMalformedResponse = errors.New("malformed classifier response")

// Partition is a validated classifier answer.
type Partition struct {
	Missing []string `json:"missing_skills"`
	Extra   []string `json:"extra_skills"`
}

const partitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "missing_skills": {"type": "array", "items": {"type": "string"}},
    "extra_skills": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["missing_skills", "extra_skills"],
  "additionalProperties": false
}`

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(partitionSchema))
})

// ParsePartition decodes raw into a Partition. The answer may be wrapped in a
// markdown code fence; anything else than exactly the two string arrays is
// rejected with ErrMalformedResponse.
func ParsePartition(raw string) (Partition, error) {
	body := stripFence(raw)
	if body == "" {
		return Partition{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	schema, err := loadSchema()
	if err != nil {
		return Partition{}, fmt.Errorf("load partition schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return Partition{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return Partition{}, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(problems, "; "))
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var partition Partition
	if err := dec.Decode(&partition); err != nil {
		return Partition{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Partition{}, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}

	return partition, nil
}

// stripFence returns the content of the first markdown code block in raw, or
// raw itself when there is none.
func stripFence(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "```")
	if start == -1 {
		return raw
	}

	body := raw[start+3:]
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}

	body = strings.TrimSpace(body)
	for _, tag := range []string{"json", "JSON"} {
		body = strings.TrimPrefix(body, tag)
	}
	return strings.TrimSpace(body)
}
