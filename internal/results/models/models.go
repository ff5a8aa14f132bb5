// Package models defines the records fetched from result sources and the
// canonical wire shapes the API exposes. Records are read-only snapshots;
// nothing in this system creates or mutates them.
package models

import "time"

// Query identifies one student lookup. All three fields are required; a roll
// number alone is not unique across sources.
type Query struct {
	Roll       string
	Regulation string
	Program    string
}

// StudentRecord identifies one student within exactly one source. The same
// roll number may coincidentally exist in two sources; the resolver's
// priority order decides which one wins.
type StudentRecord struct {
	RollNumber     string
	RegulationYear string
	ProgramName    string
	InstituteCode  string
}

// InstituteRecord is looked up in the same source as its student, keyed by
// institute code.
type InstituteRecord struct {
	Code     string
	Name     string
	District string
}

// GpaRecord is one semester result. A nil GPA marks a reference/repeat
// semester, a distinct state from a real numeric grade. RefSubjects carries
// whatever encoding the source stored (JSON array, bare string, empty);
// decoding happens in the normalize package.
type GpaRecord struct {
	RollNumber  string
	Semester    int
	GPA         *float64
	IsReference bool
	RefSubjects string
	CreatedAt   time.Time
}

// CgpaRecord is a cumulative grade-point record. An empty semester means the
// final cumulative result.
type CgpaRecord struct {
	RollNumber string
	Semester   string
	CGPA       float64
	CreatedAt  time.Time
}

// Origin tags which channel produced a resolution.
type Origin string

const (
	OriginStore    Origin = "store"
	OriginFallback Origin = "fallback"
)

// Resolution is the transient outcome of one federated lookup. Store hits
// carry raw Gpa/Cgpa records for the normalizer to coerce; fallback hits
// carry pre-shaped Semesters/CgpaEntries that pass through untouched.
type Resolution struct {
	Origin     Origin
	SourceName string
	Student    StudentRecord
	Institute  InstituteRecord

	Gpa  []GpaRecord
	Cgpa []CgpaRecord

	Semesters   []SemesterResult
	CgpaEntries []CgpaEntry

	// Warnings records degraded-but-successful outcomes, such as a GPA
	// fetch that failed on an otherwise matching source.
	Warnings []string
}

// -----------------------------------------------------------------------------
// Canonical wire shapes
// -----------------------------------------------------------------------------

// GradeBlock is the per-semester grade detail inside a SemesterResult.
type GradeBlock struct {
	GPA         string   `json:"gpa"`
	RefSubjects []string `json:"ref_subjects"`
}

// SemesterResult is one entry of the resultData array.
type SemesterResult struct {
	PublishedAt string     `json:"publishedAt"`
	Semester    string     `json:"semester"`
	Result      GradeBlock `json:"result"`
	Passed      bool       `json:"passed"`
	GPA         string     `json:"gpa"`
}

// CgpaEntry is one entry of the cgpaData array.
type CgpaEntry struct {
	Semester    string `json:"semester"`
	CGPA        string `json:"cgpa"`
	PublishedAt string `json:"publishedAt"`
}

// InstituteBlock is the instituteData object of the canonical document.
type InstituteBlock struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	District string `json:"district"`
}

// Document is the canonical success response, identical regardless of which
// source or fallback channel answered.
type Document struct {
	Success       bool             `json:"success"`
	Roll          string           `json:"roll"`
	Regulation    string           `json:"regulation"`
	Exam          string           `json:"exam"`
	InstituteData InstituteBlock   `json:"instituteData"`
	ResultData    []SemesterResult `json:"resultData"`
	CgpaData      []CgpaEntry      `json:"cgpaData"`
	Warnings      []string         `json:"warnings,omitempty"`
}

// Miss is the structured not-found response listing everything that was tried.
type Miss struct {
	Success          bool     `json:"success"`
	Error            string   `json:"error"`
	Roll             string   `json:"roll"`
	Regulation       string   `json:"regulation"`
	Exam             string   `json:"exam"`
	ProjectsSearched []string `json:"projects_searched"`
	WebAPIsTried     []string `json:"web_apis_tried"`
}
