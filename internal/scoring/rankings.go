package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spigell/resume-scorer/internal/recruit"
)

// Rankings is the scored, sorted applicant list of one job.
type Rankings struct {
	RunID    string     `json:"run_id"`
	JobID    string     `json:"job_id"`
	JobTitle string     `json:"job_title,omitempty"`
	Items    []*Ranking `json:"items"`
}

type Ranking struct {
	Candidate *recruit.Candidate `json:"candidate"`
	Result    *Result            `json:"result,omitempty"`
	// Err is set when the candidate could not be scored.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func (r *Ranking) Overall() float64 {
	if r.Result == nil {
		return 0
	}
	return r.Result.OverallScore
}

// Sort orders by overall score descending. Failed entries go last, ties are
// broken by candidate ID.
func (r *Rankings) Sort() {
	slices.SortStableFunc(r.Items, func(a, b *Ranking) int {
		if (a.Err == nil) != (b.Err == nil) {
			if a.Err == nil {
				return -1
			}
			return 1
		}
		if a.Overall() != b.Overall() {
			if a.Overall() > b.Overall() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Candidate.ID, b.Candidate.ID)
	})
}

func (r *Rankings) Len() int {
	return len(r.Items)
}

// Scored returns how many entries carry a result.
func (r *Rankings) Scored() int {
	n := 0
	for _, item := range r.Items {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// Keep drops every entry for which keep returns false, preserving order, and
// returns the IDs of the dropped candidates.
func (r *Rankings) Keep(keep func(*Ranking) bool) []string {
	var dropped []string
	kept := r.Items[:0]
	for _, item := range r.Items {
		if keep(item) {
			kept = append(kept, item)
			continue
		}
		dropped = append(dropped, item.Candidate.ID)
	}
	clear(r.Items[len(kept):])
	r.Items = kept
	return dropped
}

// Exclude drops the candidates with the given IDs.
func (r *Rankings) Exclude(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return r.Keep(func(item *Ranking) bool {
		_, found := set[item.Candidate.ID]
		return !found
	})
}

func (r *Rankings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "rankings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ToReviewed converts the scored entries into reviewed-file records.
func (r *Rankings) ToReviewed() *recruit.Reviewed {
	reviewed := &recruit.Reviewed{}
	now := time.Now().UTC()
	for _, item := range r.Items {
		if item.Err != nil {
			continue
		}
		reviewed.Items = append(reviewed.Items, &recruit.ReviewedCandidate{
			CandidateID:  item.Candidate.ID,
			Name:         item.Candidate.Name,
			JobID:        r.JobID,
			OverallScore: item.Overall(),
			ReviewedAt:   now,
		})
	}
	return reviewed
}

// Report is a compact, ordered view of the rankings for terminal output.
func (r *Rankings) Report() []map[string]string {
	report := make([]map[string]string, 0, len(r.Items))
	for idx, item := range r.Items {
		entry := map[string]string{
			"rank":      fmt.Sprintf("%d", idx+1),
			"candidate": fmt.Sprintf("%s (%s)", item.Candidate.Name, item.Candidate.ID),
		}
		if item.Err != nil {
			entry["error"] = item.Err.Error()
			report = append(report, entry)
			continue
		}

		res := item.Result
		entry["overall"] = fmt.Sprintf("%.2f", res.OverallScore)
		entry["skills"] = fmt.Sprintf("%d", res.SkillsScore)
		entry["requirements"] = fmt.Sprintf("%d", res.RequirementsScore)
		entry["education"] = fmt.Sprintf("%d", res.EducationScore)
		entry["missing skills"] = strings.Join(res.MissingSkills, ", ")
		entry["extra skills"] = strings.Join(res.ExtraSkills, ", ")
		if email := item.Candidate.Contact.Email; email != "" {
			entry["email"] = email
		}
		report = append(report, entry)
	}
	return report
}
