package recruit

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// Reviewed lists candidates a recruiter has already looked at. It is stored as
// JSON and used to hide those candidates from later rankings of the same job.
type Reviewed struct {
	Items []*ReviewedCandidate
}

type ReviewedCandidate struct {
	CandidateID  string
	Name         string
	JobID        string
	OverallScore float64
	ReviewedAt   time.Time
}

// LoadReviewed reads the reviewed file. A missing or empty file yields an
// empty list.
func LoadReviewed(path string) (*Reviewed, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Reviewed{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &Reviewed{}, nil
	}

	var reviewed Reviewed
	if err := json.NewDecoder(file).Decode(&reviewed); err != nil {
		return nil, err
	}
	return &reviewed, nil
}

func (r *Reviewed) Append(s *Reviewed) {
	if s == nil {
		return
	}
	r.Items = append(r.Items, s.Items...)
}

// CandidateIDs returns the candidates reviewed for the given job.
func (r *Reviewed) CandidateIDs(jobID string) []string {
	ids := make([]string, 0)
	for _, item := range r.Items {
		if item.JobID == jobID {
			ids = append(ids, item.CandidateID)
		}
	}
	return ids
}

func (r *Reviewed) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
