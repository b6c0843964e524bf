package recruit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Keys emitted by different extractors for the same field.
var (
	candidateAliases = map[string]string{
		"title":        "job_title",
		"position":     "job_title",
		"organization": "company",
		"employer":     "company",
		"institution":  "university",
		"school":       "university",
	}
	jobAliases = map[string]string{
		"job_title":            "title",
		"skillspriority":       "skills_priority",
		"requirementspriority": "requirements_priority",
		"educationpriority":    "education_priority",
	}
)

// DecodeCandidate parses one candidate record.
func DecodeCandidate(data []byte) (*Candidate, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse candidate: %w", err)
	}

	candidate := &Candidate{}
	if err := decode(raw, candidate, candidateAliases); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	candidate.Skills = cleanSkills(candidate.Skills, skillsAsString(raw))

	return candidate, nil
}

// DecodeJob parses one job record.
func DecodeJob(data []byte) (*Job, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}

	job := &Job{}
	if err := decode(raw, job, jobAliases); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	job.Skills = cleanSkills(job.Skills, skillsAsString(raw))

	return job, nil
}

// LoadJob reads a job record from a file. A job without an ID takes the file
// name without extension.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	job, err := DecodeJob(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if job.ID == "" {
		job.ID = baseName(path)
	}

	return job, nil
}

// LoadCandidate reads a single candidate record from a file.
func LoadCandidate(path string) (*Candidate, error) {
	candidates, err := LoadCandidates(path)
	if err != nil {
		return nil, err
	}
	if len(candidates) != 1 {
		return nil, fmt.Errorf("%s: expected one candidate, found %d", path, len(candidates))
	}

	return candidates[0], nil
}

// LoadCandidates reads candidates from files and directories. Directories
// contribute every *.json file in lexical order, and a file may hold either a
// single record or an array of records. Candidates without an ID are named
// after their file, with a #N suffix inside arrays.
func LoadCandidates(paths ...string) ([]*Candidate, error) {
	files, err := expand(paths)
	if err != nil {
		return nil, err
	}

	var candidates []*Candidate
	for _, file := range files {
		loaded, err := loadCandidateFile(file)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, loaded...)
	}

	seen := make(map[string]string, len(candidates))
	for _, candidate := range candidates {
		if prev, ok := seen[candidate.ID]; ok {
			return nil, fmt.Errorf("duplicate candidate id %q (%s)", candidate.ID, prev)
		}
		seen[candidate.ID] = candidate.Name
	}

	return candidates, nil
}

func loadCandidateFile(path string) ([]*Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%s: parse candidates: %w", path, err)
		}
	} else {
		records = []json.RawMessage{data}
	}

	candidates := make([]*Candidate, 0, len(records))
	for idx, record := range records {
		candidate, err := DecodeCandidate(record)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if candidate.ID == "" {
			candidate.ID = baseName(path)
			if len(records) > 1 {
				candidate.ID = fmt.Sprintf("%s#%d", candidate.ID, idx+1)
			}
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func expand(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			files = append(files, path)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}

	return files, nil
}

func decode(input, out any, aliases map[string]string) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
		MatchName: func(mapKey, fieldName string) bool {
			key := strings.ToLower(strings.TrimSpace(mapKey))
			if alias, ok := aliases[key]; ok {
				key = alias
			}
			return strings.EqualFold(key, fieldName)
		},
	})
	if err != nil {
		return err
	}

	return dec.Decode(input)
}

// skillsAsString reports whether the record carries its skills as one
// comma-separated string rather than a list.
func skillsAsString(raw any) bool {
	record, ok := raw.(map[string]any)
	if !ok {
		return false
	}
	for key, value := range record {
		if strings.EqualFold(strings.TrimSpace(key), "skills") {
			_, ok := value.(string)
			return ok
		}
	}
	return false
}

// cleanSkills trims skills and drops blanks. With split set, items are also
// broken on commas, turning "Go, SQL" into ["Go", "SQL"]; list items such as
// "Python (NumPy, Pandas)" are kept whole.
func cleanSkills(items []string, split bool) []string {
	skills := make([]string, 0, len(items))
	for _, item := range items {
		parts := []string{item}
		if split {
			parts = strings.Split(item, ",")
		}
		for _, skill := range parts {
			if skill = strings.TrimSpace(skill); skill != "" {
				skills = append(skills, skill)
			}
		}
	}
	return skills
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
