// Package normalize assembles the canonical response document from a
// resolution, regardless of which source or fallback channel answered. It
// owns all type coercion and defaulting so heterogeneous source conventions
// never leak into the wire shape.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"resulthub/internal/results/models"
)

const (
	// RefGPA is the display value for a reference/repeat semester.
	RefGPA = "ref"

	// FinalSemester labels a cumulative record with no semester of its own.
	FinalSemester = "Final"

	// DefaultPublishedAt stands in for a missing timestamp so consumers
	// never see an absent field.
	DefaultPublishedAt = "2025-01-01T00:00:00Z"
)

// Document builds the canonical success response. Store-origin resolutions
// have their raw GPA/CGPA records coerced; fallback-origin resolutions are
// assumed pre-normalized and pass through untouched.
func Document(res *models.Resolution) models.Document {
	doc := models.Document{
		Success:    true,
		Roll:       res.Student.RollNumber,
		Regulation: res.Student.RegulationYear,
		Exam:       res.Student.ProgramName,
		InstituteData: models.InstituteBlock{
			Code:     res.Institute.Code,
			Name:     res.Institute.Name,
			District: res.Institute.District,
		},
		Warnings: res.Warnings,
	}

	if res.Origin == models.OriginFallback {
		doc.ResultData = emptyIfNil(res.Semesters)
		doc.CgpaData = emptyCgpaIfNil(res.CgpaEntries)
		return doc
	}

	doc.ResultData = SemesterResults(res.Gpa)
	doc.CgpaData = CgpaEntries(res.Cgpa)
	return doc
}

// MissDocument builds the structured not-found response.
func MissDocument(q models.Query, projectsSearched, webAPIsTried []string) models.Miss {
	return models.Miss{
		Success:          false,
		Error:            "Student not found in any database or web API",
		Roll:             q.Roll,
		Regulation:       q.Regulation,
		Exam:             q.Program,
		ProjectsSearched: emptyIfNilStrings(projectsSearched),
		WebAPIsTried:     emptyIfNilStrings(webAPIsTried),
	}
}

// SemesterResults coerces raw GPA records, already ordered by semester, into
// wire entries.
func SemesterResults(records []models.GpaRecord) []models.SemesterResult {
	out := make([]models.SemesterResult, 0, len(records))
	for _, rec := range records {
		gpa := GPAString(rec.GPA)
		out = append(out, models.SemesterResult{
			PublishedAt: Timestamp(rec.CreatedAt),
			Semester:    strconv.Itoa(rec.Semester),
			Result: models.GradeBlock{
				GPA:         gpa,
				RefSubjects: RefSubjects(rec.RefSubjects),
			},
			Passed: !rec.IsReference,
			GPA:    gpa,
		})
	}
	return out
}

// CgpaEntries coerces raw cumulative records into wire entries.
func CgpaEntries(records []models.CgpaRecord) []models.CgpaEntry {
	out := make([]models.CgpaEntry, 0, len(records))
	for _, rec := range records {
		semester := rec.Semester
		if semester == "" {
			semester = FinalSemester
		}
		out = append(out, models.CgpaEntry{
			Semester:    semester,
			CGPA:        fmt.Sprintf("%.2f", rec.CGPA),
			PublishedAt: Timestamp(rec.CreatedAt),
		})
	}
	return out
}

// GPAString renders a grade-point value for display. A nil value means a
// reference/repeat semester, not a zero grade.
func GPAString(gpa *float64) string {
	if gpa == nil {
		return RefGPA
	}
	return fmt.Sprintf("%.2f", *gpa)
}

// RefSubjects decodes the stored reference-subject encoding into a list.
// Sources have stored this as a JSON array, a bare string, or nothing at all;
// anything that is not a JSON array degrades to wrapping the raw string as a
// single-element list rather than failing the request.
func RefSubjects(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if gjson.Valid(raw) {
		if parsed := gjson.Parse(raw); parsed.IsArray() {
			items := parsed.Array()
			subjects := make([]string, 0, len(items))
			for _, item := range items {
				subjects = append(subjects, item.String())
			}
			return subjects
		}
	}
	return []string{raw}
}

// Timestamp renders a record timestamp, substituting the fixed sentinel for
// the zero value.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return DefaultPublishedAt
	}
	return t.UTC().Format(time.RFC3339)
}

func emptyIfNil(v []models.SemesterResult) []models.SemesterResult {
	if v == nil {
		return []models.SemesterResult{}
	}
	return v
}

func emptyCgpaIfNil(v []models.CgpaEntry) []models.CgpaEntry {
	if v == nil {
		return []models.CgpaEntry{}
	}
	return v
}

func emptyIfNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
