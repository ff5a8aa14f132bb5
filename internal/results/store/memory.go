package store

import (
	"context"
	"sort"
	"sync"

	"resulthub/internal/results/models"
	"resulthub/pkg/platform/sentinel"
)

type studentKey struct {
	roll       string
	regulation string
	program    string
}

// Memory is an in-memory Fetcher used as a test double and for local runs
// without a database. It can be flipped into an unavailable state to exercise
// the resolver's skip-and-continue behavior.
type Memory struct {
	mu          sync.RWMutex
	students    map[studentKey]models.StudentRecord
	institutes  map[string]models.InstituteRecord
	gpa         map[string][]models.GpaRecord
	cgpa        map[string][]models.CgpaRecord
	regulations map[string][]string
	down        bool
}

// NewMemory constructs an empty in-memory fetcher.
func NewMemory() *Memory {
	return &Memory{
		students:    make(map[studentKey]models.StudentRecord),
		institutes:  make(map[string]models.InstituteRecord),
		gpa:         make(map[string][]models.GpaRecord),
		cgpa:        make(map[string][]models.CgpaRecord),
		regulations: make(map[string][]string),
	}
}

// SetUnavailable makes every subsequent call fail as a transport error.
func (m *Memory) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

// AddStudent stores a student record keyed by its three identifying fields.
func (m *Memory) AddStudent(rec models.StudentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[studentKey{rec.RollNumber, rec.RegulationYear, rec.ProgramName}] = rec
}

// AddInstitute stores an institute record keyed by code.
func (m *Memory) AddInstitute(rec models.InstituteRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.institutes[rec.Code] = rec
}

// AddGpa appends a semester record for its roll number.
func (m *Memory) AddGpa(rec models.GpaRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gpa[rec.RollNumber] = append(m.gpa[rec.RollNumber], rec)
}

// AddCgpa appends a cumulative record for its roll number.
func (m *Memory) AddCgpa(rec models.CgpaRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cgpa[rec.RollNumber] = append(m.cgpa[rec.RollNumber], rec)
}

// AddRegulation records a regulation year for a program.
func (m *Memory) AddRegulation(program, year string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regulations[program] = append(m.regulations[program], year)
}

func (m *Memory) FindStudent(_ context.Context, roll, regulation, program string) (*models.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return nil, sentinel.ErrUnavailable
	}
	rec, ok := m.students[studentKey{roll, regulation, program}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) FindInstitute(_ context.Context, code string) (*models.InstituteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return nil, sentinel.ErrUnavailable
	}
	rec, ok := m.institutes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) GpaRecords(_ context.Context, roll string) ([]models.GpaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return nil, sentinel.ErrUnavailable
	}
	records := append([]models.GpaRecord(nil), m.gpa[roll]...)
	sort.Slice(records, func(i, j int) bool { return records[i].Semester < records[j].Semester })
	return records, nil
}

func (m *Memory) CgpaRecords(_ context.Context, roll string) ([]models.CgpaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return nil, sentinel.ErrUnavailable
	}
	return append([]models.CgpaRecord(nil), m.cgpa[roll]...), nil
}

func (m *Memory) RegulationYears(_ context.Context, program string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return nil, sentinel.ErrUnavailable
	}
	return append([]string(nil), m.regulations[program]...), nil
}

func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return sentinel.ErrUnavailable
	}
	return nil
}
