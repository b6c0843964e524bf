// Package recruit holds the candidate and job records that get scored, and
// loads them from the JSON produced by résumé and posting extraction.
package recruit

import (
	"github.com/spigell/resume-scorer/internal/normalize"
	"github.com/spigell/resume-scorer/internal/priority"
)

type Candidate struct {
	ID             string        `json:"id,omitempty" mapstructure:"id"`
	Name           string        `json:"name,omitempty" mapstructure:"name"`
	Contact        Contact       `json:"contact,omitempty" mapstructure:"contact"`
	Summary        string        `json:"summary,omitempty" mapstructure:"summary"`
	Skills         []string      `json:"skills,omitempty" mapstructure:"skills"`
	Experience     []*Experience `json:"experience,omitempty" mapstructure:"experience"`
	Education      []*Education  `json:"education,omitempty" mapstructure:"education"`
	Certifications []string      `json:"certifications,omitempty" mapstructure:"certifications"`
}

type Contact struct {
	Email    string `json:"email,omitempty" mapstructure:"email"`
	Phone    string `json:"phone,omitempty" mapstructure:"phone"`
	LinkedIn string `json:"linkedin,omitempty" mapstructure:"linkedin"`
	Location string `json:"location,omitempty" mapstructure:"location"`
}

type Experience struct {
	Title            string   `json:"job_title,omitempty" mapstructure:"job_title"`
	Organization     string   `json:"company,omitempty" mapstructure:"company"`
	Location         string   `json:"location,omitempty" mapstructure:"location"`
	StartDate        string   `json:"start_date,omitempty" mapstructure:"start_date"`
	EndDate          string   `json:"end_date,omitempty" mapstructure:"end_date"`
	Responsibilities []string `json:"responsibilities,omitempty" mapstructure:"responsibilities"`
}

type Education struct {
	Degree      string `json:"degree,omitempty" mapstructure:"degree"`
	Institution string `json:"university,omitempty" mapstructure:"university"`
	Year        string `json:"year,omitempty" mapstructure:"year"`
}

type Job struct {
	ID          string   `json:"id,omitempty" mapstructure:"id"`
	Title       string   `json:"title,omitempty" mapstructure:"title"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
	Skills      []string `json:"skills,omitempty" mapstructure:"skills"`
	// Requirements is free text; Responsibilities is either a list of
	// strings or a mapping and is serialized as-is.
	Requirements     string `json:"requirements,omitempty" mapstructure:"requirements"`
	Responsibilities any    `json:"responsibilities,omitempty" mapstructure:"responsibilities"`
	Education        string `json:"education,omitempty" mapstructure:"education"`

	SkillsPriority       priority.Level `json:"skills_priority,omitempty" mapstructure:"skills_priority"`
	RequirementsPriority priority.Level `json:"requirements_priority,omitempty" mapstructure:"requirements_priority"`
	EducationPriority    priority.Level `json:"education_priority,omitempty" mapstructure:"education_priority"`
}

// Narrative renders one experience entry as "{title} at {organization}. {responsibilities}".
// Entries with no content render as an empty string.
func (e *Experience) Narrative() string {
	if e == nil {
		return ""
	}
	responsibilities := normalize.Text(e.Responsibilities)
	if normalize.String(e.Title) == "" && normalize.String(e.Organization) == "" && responsibilities == "" {
		return ""
	}
	return normalize.Text(e.Title + " at " + e.Organization + ". " + responsibilities)
}

// Line renders one education entry as "{degree} from {institution}".
func (e *Education) Line() string {
	if e == nil || (normalize.String(e.Degree) == "" && normalize.String(e.Institution) == "") {
		return ""
	}
	return normalize.Text(e.Degree + " from " + e.Institution)
}

// ExperienceText joins every experience narrative into one paragraph.
func (c *Candidate) ExperienceText() string {
	parts := make([]string, 0, len(c.Experience))
	for _, exp := range c.Experience {
		parts = append(parts, exp.Narrative())
	}
	return normalize.Join(" ", parts...)
}

// EducationText joins every education line into one paragraph.
func (c *Candidate) EducationText() string {
	parts := make([]string, 0, len(c.Education))
	for _, edu := range c.Education {
		parts = append(parts, edu.Line())
	}
	return normalize.Join(" ", parts...)
}

// RequirementsText is the job side of the requirements comparison.
func (j *Job) RequirementsText() string {
	return normalize.Text(j.Requirements + " " + normalize.Text(j.Responsibilities))
}
