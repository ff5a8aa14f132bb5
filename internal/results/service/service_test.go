package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"resulthub/internal/results/fallback"
	"resulthub/internal/results/models"
	"resulthub/internal/results/sources"
	"resulthub/internal/results/store"
	dErrors "resulthub/pkg/domain-errors"
	"resulthub/pkg/platform/sentinel"
)

// =============================================================================
// Test doubles
// =============================================================================

// trackingFetcher wraps a memory store and records which source answered each
// student query, so ordering and short-circuit behavior can be asserted.
type trackingFetcher struct {
	*store.Memory
	name    string
	queried *[]string

	studentErr   error
	instituteErr error
	gpaErr       error
	cgpaErr      error
}

func (f *trackingFetcher) FindStudent(ctx context.Context, roll, regulation, program string) (*models.StudentRecord, error) {
	*f.queried = append(*f.queried, f.name)
	if f.studentErr != nil {
		return nil, f.studentErr
	}
	return f.Memory.FindStudent(ctx, roll, regulation, program)
}

func (f *trackingFetcher) FindInstitute(ctx context.Context, code string) (*models.InstituteRecord, error) {
	if f.instituteErr != nil {
		return nil, f.instituteErr
	}
	return f.Memory.FindInstitute(ctx, code)
}

func (f *trackingFetcher) GpaRecords(ctx context.Context, roll string) ([]models.GpaRecord, error) {
	if f.gpaErr != nil {
		return nil, f.gpaErr
	}
	return f.Memory.GpaRecords(ctx, roll)
}

func (f *trackingFetcher) CgpaRecords(ctx context.Context, roll string) ([]models.CgpaRecord, error) {
	if f.cgpaErr != nil {
		return nil, f.cgpaErr
	}
	return f.Memory.CgpaRecords(ctx, roll)
}

// fakeFallback records invocations and returns a canned result or error.
type fakeFallback struct {
	calls  int
	rolls  []string
	result *fallback.Result
	err    error
}

func (f *fakeFallback) Search(_ context.Context, roll, _, _ string) (*fallback.Result, error) {
	f.calls++
	f.rolls = append(f.rolls, roll)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeFallback) Names() []string { return []string{"btebresulthub"} }

func (f *fakeFallback) TestConnections(context.Context) map[string]string {
	return map[string]string{"btebresulthub": "connected"}
}

// =============================================================================
// Resolver Test Suite
// =============================================================================
// Justification for unit tests: the federated scan's ordering, short-circuit,
// downgrade and fallback behaviors are the core contract of this service and
// are impractical to exercise precisely through HTTP-level tests.

type ResolverSuite struct {
	suite.Suite
	registry  *sources.Registry
	primary   *trackingFetcher
	secondary *trackingFetcher
	fb        *fakeFallback
	service   *Service
	queried   []string
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.queried = nil
	s.registry = sources.New()
	s.primary = &trackingFetcher{Memory: store.NewMemory(), name: "primary", queried: &s.queried}
	s.secondary = &trackingFetcher{Memory: store.NewMemory(), name: "secondary", queried: &s.queried}

	s.Require().NoError(s.registry.Register(sources.Source{Name: "primary", Endpoint: "postgres://primary"}, s.primary))
	s.Require().NoError(s.registry.Register(sources.Source{Name: "secondary", Endpoint: "postgres://secondary"}, s.secondary))
	s.Require().NoError(s.registry.SetSearchOrder([]string{"primary", "secondary"}))

	s.fb = &fakeFallback{err: sentinel.ErrNotFound}

	var err error
	s.service, err = New(s.registry, s.fb)
	s.Require().NoError(err)
}

func (s *ResolverSuite) seedStudent(f *trackingFetcher) {
	f.AddStudent(models.StudentRecord{
		RollNumber:     "123456",
		RegulationYear: "2016",
		ProgramName:    "Diploma",
		InstituteCode:  "50045",
	})
	f.AddInstitute(models.InstituteRecord{Code: "50045", Name: "Dhaka Polytechnic", District: "Dhaka"})
}

func query() models.Query {
	return models.Query{Roll: "123456", Regulation: "2016", Program: "Diploma"}
}

// =============================================================================
// Validation
// =============================================================================

func (s *ResolverSuite) TestValidation() {
	ctx := context.Background()

	s.Run("missing fields are a bad request", func() {
		_, err := s.service.Resolve(ctx, models.Query{Roll: "123456"})
		s.Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
		s.Contains(err.Error(), "regulation")
		s.Contains(err.Error(), "program")
	})

	s.Run("no sources are queried on invalid input", func() {
		_, _ = s.service.Resolve(ctx, models.Query{})
		s.Empty(s.queried)
	})
}

// =============================================================================
// Priority order and short-circuit
// =============================================================================

func (s *ResolverSuite) TestPriorityOrder() {
	ctx := context.Background()

	s.Run("first matching source wins and later sources are not queried", func() {
		s.seedStudent(s.primary)
		s.seedStudent(s.secondary)

		res, err := s.service.Resolve(ctx, query())
		s.Require().NoError(err)
		s.Equal("primary", res.SourceName)
		s.Equal([]string{"primary"}, s.queried)
	})

	s.Run("miss in the first source advances to the second", func() {
		s.queried = nil
		s.primary.Memory = store.NewMemory()
		s.secondary.Memory = store.NewMemory()
		s.seedStudent(s.secondary)

		res, err := s.service.Resolve(ctx, query())
		s.Require().NoError(err)
		s.Equal("secondary", res.SourceName)
		s.Equal(models.OriginStore, res.Origin)
		s.Equal([]string{"primary", "secondary"}, s.queried)
	})
}

func (s *ResolverSuite) TestUnavailableSourceIsSkipped() {
	ctx := context.Background()
	s.primary.studentErr = sentinel.ErrUnavailable
	s.seedStudent(s.secondary)

	res, err := s.service.Resolve(ctx, query())
	s.Require().NoError(err)
	s.Equal("secondary", res.SourceName)
	s.Equal(0, s.fb.calls, "fallback must not run when a later source matches")
}

func (s *ResolverSuite) TestUnexpectedErrorIsDowngraded() {
	ctx := context.Background()
	s.primary.studentErr = errors.New("driver: bad connection state")
	s.seedStudent(s.secondary)

	res, err := s.service.Resolve(ctx, query())
	s.Require().NoError(err)
	s.Equal("secondary", res.SourceName)
}

// =============================================================================
// Restore invariant
// =============================================================================

func (s *ResolverSuite) TestActivePointerUntouched() {
	ctx := context.Background()
	before := s.registry.ActiveName()

	s.Run("after a hit", func() {
		s.seedStudent(s.secondary)
		_, err := s.service.Resolve(ctx, query())
		s.Require().NoError(err)
		s.Equal(before, s.registry.ActiveName())
	})

	s.Run("after a miss with inner fetch errors", func() {
		s.primary.studentErr = sentinel.ErrUnavailable
		s.secondary.studentErr = sentinel.ErrUnavailable
		_, err := s.service.Resolve(ctx, models.Query{Roll: "000000", Regulation: "2016", Program: "Diploma"})
		s.Error(err)
		s.Equal(before, s.registry.ActiveName())
	})
}

// =============================================================================
// Supplementary record assembly
// =============================================================================

func (s *ResolverSuite) TestGpaFromSameSourceBestEffort() {
	ctx := context.Background()
	gpa := 3.5
	s.seedStudent(s.secondary)
	s.secondary.AddGpa(models.GpaRecord{RollNumber: "123456", Semester: 1, GPA: &gpa})
	// A GPA record in the wrong source must not leak into the result.
	s.primary.AddGpa(models.GpaRecord{RollNumber: "123456", Semester: 9, GPA: &gpa})

	s.Run("gpa records come from the student's source only", func() {
		res, err := s.service.Resolve(ctx, query())
		s.Require().NoError(err)
		s.Require().Len(res.Gpa, 1)
		s.Equal(1, res.Gpa[0].Semester)
	})

	s.Run("gpa fetch failure degrades to a warning, not an error", func() {
		s.secondary.gpaErr = sentinel.ErrUnavailable
		res, err := s.service.Resolve(ctx, query())
		s.Require().NoError(err)
		s.Empty(res.Gpa)
		s.NotEmpty(res.Warnings)
	})
}

func (s *ResolverSuite) TestCgpaRescansAllSources() {
	ctx := context.Background()
	s.seedStudent(s.secondary)
	// CGPA lives in primary even though the student record is in secondary.
	s.primary.AddCgpa(models.CgpaRecord{RollNumber: "123456", CGPA: 3.61})

	s.Run("cgpa found in a different source than the student", func() {
		res, err := s.service.Resolve(ctx, query())
		s.Require().NoError(err)
		s.Require().Len(res.Cgpa, 1)
		s.InDelta(3.61, res.Cgpa[0].CGPA, 0.001)
	})

	s.Run("cgpa lookup error on one source continues to the next", func() {
		s.primary.cgpaErr = sentinel.ErrUnavailable
		s.secondary.AddCgpa(models.CgpaRecord{RollNumber: "123456", CGPA: 3.2})

		res, err := s.service.Resolve(ctx, query())
		s.Require().NoError(err)
		s.Require().Len(res.Cgpa, 1)
		s.InDelta(3.2, res.Cgpa[0].CGPA, 0.001)
		s.NotEmpty(res.Warnings)
	})
}

func (s *ResolverSuite) TestInstituteMissingDegrades() {
	ctx := context.Background()
	s.secondary.AddStudent(models.StudentRecord{
		RollNumber:     "123456",
		RegulationYear: "2016",
		ProgramName:    "Diploma",
		InstituteCode:  "50045",
	})
	// No institute record seeded.

	res, err := s.service.Resolve(ctx, query())
	s.Require().NoError(err)
	s.Equal("50045", res.Institute.Code)
	s.Empty(res.Institute.Name)
	s.NotEmpty(res.Warnings)
}

// =============================================================================
// Fallback
// =============================================================================

func (s *ResolverSuite) TestFallback() {
	ctx := context.Background()

	s.Run("invoked exactly once with the original roll", func() {
		_, err := s.service.Resolve(ctx, query())
		s.Error(err)
		s.Equal(1, s.fb.calls)
		s.Equal([]string{"123456"}, s.fb.rolls)
	})

	s.Run("miss lists every source and web api tried", func() {
		var miss *MissError
		_, err := s.service.Resolve(ctx, query())
		s.Require().ErrorAs(err, &miss)
		s.Equal([]string{"primary", "secondary"}, miss.ProjectsSearched)
		s.Equal([]string{"btebresulthub"}, miss.WebAPIsTried)
		s.Equal("123456", miss.Query.Roll)
	})

	s.Run("fallback hit carries pre-shaped records", func() {
		s.fb.err = nil
		s.fb.result = &fallback.Result{
			WebAPI:  "btebresulthub",
			Student: models.StudentRecord{RollNumber: "123456", RegulationYear: "2016", ProgramName: "Diploma"},
			Semesters: []models.SemesterResult{
				{Semester: "1", GPA: "3.93", Passed: true},
			},
		}

		res, err := s.service.Resolve(ctx, query())
		s.Require().NoError(err)
		s.Equal(models.OriginFallback, res.Origin)
		s.Equal("btebresulthub", res.SourceName)
		s.Require().Len(res.Semesters, 1)
		s.Empty(res.Gpa, "fallback results carry no raw store records")
	})

	s.Run("not invoked when a source matches", func() {
		s.fb.calls = 0
		s.seedStudent(s.primary)
		_, err := s.service.Resolve(ctx, query())
		s.Require().NoError(err)
		s.Equal(0, s.fb.calls)
	})
}

// =============================================================================
// End to end
// =============================================================================

func (s *ResolverSuite) TestEndToEndSecondaryHit() {
	ctx := context.Background()
	gpa1, gpa2 := 3.93, 3.75
	s.seedStudent(s.secondary)
	s.secondary.AddGpa(models.GpaRecord{RollNumber: "123456", Semester: 2, GPA: &gpa2})
	s.secondary.AddGpa(models.GpaRecord{RollNumber: "123456", Semester: 1, GPA: &gpa1})

	res, err := s.service.Resolve(ctx, query())
	s.Require().NoError(err)
	s.Equal("secondary", res.SourceName)
	s.Equal(models.OriginStore, res.Origin)
	s.Require().Len(res.Gpa, 2)
	s.Equal(1, res.Gpa[0].Semester)
	s.Equal(2, res.Gpa[1].Semester)
	s.Equal("Dhaka Polytechnic", res.Institute.Name)
}
