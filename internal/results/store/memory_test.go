package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"resulthub/internal/results/models"
	"resulthub/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Memory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
}

func (s *MemoryStoreSuite) TestFindStudent() {
	ctx := context.Background()
	s.store.AddStudent(models.StudentRecord{
		RollNumber:     "123456",
		RegulationYear: "2016",
		ProgramName:    "Diploma",
		InstituteCode:  "50045",
	})

	s.Run("exact match on all three fields", func() {
		rec, err := s.store.FindStudent(ctx, "123456", "2016", "Diploma")
		s.NoError(err)
		s.Equal("50045", rec.InstituteCode)
	})

	s.Run("partial match is not found", func() {
		_, err := s.store.FindStudent(ctx, "123456", "2010", "Diploma")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unavailable store surfaces transport error", func() {
		s.store.SetUnavailable(true)
		_, err := s.store.FindStudent(ctx, "123456", "2016", "Diploma")
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})
}

func (s *MemoryStoreSuite) TestGpaRecordsOrdering() {
	ctx := context.Background()
	gpa := 3.5
	s.store.AddGpa(models.GpaRecord{RollNumber: "123456", Semester: 3, GPA: &gpa})
	s.store.AddGpa(models.GpaRecord{RollNumber: "123456", Semester: 1, GPA: &gpa})
	s.store.AddGpa(models.GpaRecord{RollNumber: "123456", Semester: 2, IsReference: true})

	records, err := s.store.GpaRecords(ctx, "123456")
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Equal(1, records[0].Semester)
	s.Equal(2, records[1].Semester)
	s.Equal(3, records[2].Semester)
}

func (s *MemoryStoreSuite) TestEmptyResultsAreNotErrors() {
	ctx := context.Background()

	gpa, err := s.store.GpaRecords(ctx, "unknown")
	s.NoError(err)
	s.Empty(gpa)

	cgpa, err := s.store.CgpaRecords(ctx, "unknown")
	s.NoError(err)
	s.Empty(cgpa)

	years, err := s.store.RegulationYears(ctx, "unknown")
	s.NoError(err)
	s.Empty(years)
}

func (s *MemoryStoreSuite) TestCgpaAndRegulations() {
	ctx := context.Background()
	s.store.AddCgpa(models.CgpaRecord{RollNumber: "123456", CGPA: 3.61, CreatedAt: time.Now()})
	s.store.AddRegulation("Diploma", "2016")
	s.store.AddRegulation("Diploma", "2022")

	cgpa, err := s.store.CgpaRecords(ctx, "123456")
	s.Require().NoError(err)
	s.Len(cgpa, 1)

	years, err := s.store.RegulationYears(ctx, "Diploma")
	s.Require().NoError(err)
	s.Equal([]string{"2016", "2022"}, years)
}

func (s *MemoryStoreSuite) TestPing() {
	ctx := context.Background()
	s.NoError(s.store.Ping(ctx))

	s.store.SetUnavailable(true)
	s.ErrorIs(s.store.Ping(ctx), sentinel.ErrUnavailable)

	s.store.SetUnavailable(false)
	s.NoError(s.store.Ping(ctx))
}
