package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"resulthub/internal/results/models"
	"resulthub/pkg/platform/sentinel"
)

// Postgres fetches result records from one PostgreSQL-hosted source.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a fetcher bound to one source's connection.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) FindStudent(ctx context.Context, roll, regulation, program string) (*models.StudentRecord, error) {
	var rec models.StudentRecord
	err := p.db.QueryRowContext(ctx, `
		SELECT roll_number, regulation_year, program_name, institute_code
		FROM students
		WHERE roll_number = $1 AND regulation_year = $2 AND program_name = $3
	`, roll, regulation, program).Scan(&rec.RollNumber, &rec.RegulationYear, &rec.ProgramName, &rec.InstituteCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, unavailable("find student", err)
	}
	return &rec, nil
}

func (p *Postgres) FindInstitute(ctx context.Context, code string) (*models.InstituteRecord, error) {
	var rec models.InstituteRecord
	err := p.db.QueryRowContext(ctx, `
		SELECT institute_code, name, district
		FROM institutes
		WHERE institute_code = $1
	`, code).Scan(&rec.Code, &rec.Name, &rec.District)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, unavailable("find institute", err)
	}
	return &rec, nil
}

func (p *Postgres) GpaRecords(ctx context.Context, roll string) ([]models.GpaRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT roll_number, semester, gpa, is_reference, ref_subjects, created_at
		FROM gpa_records
		WHERE roll_number = $1
		ORDER BY semester ASC
	`, roll)
	if err != nil {
		return nil, unavailable("list gpa records", err)
	}
	defer rows.Close()

	var records []models.GpaRecord
	for rows.Next() {
		var (
			rec         models.GpaRecord
			gpa         sql.NullFloat64
			refSubjects sql.NullString
			createdAt   sql.NullTime
		)
		if err := rows.Scan(&rec.RollNumber, &rec.Semester, &gpa, &rec.IsReference, &refSubjects, &createdAt); err != nil {
			return nil, unavailable("scan gpa record", err)
		}
		if gpa.Valid {
			v := gpa.Float64
			rec.GPA = &v
		}
		rec.RefSubjects = refSubjects.String
		rec.CreatedAt = createdAt.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list gpa records", err)
	}
	return records, nil
}

func (p *Postgres) CgpaRecords(ctx context.Context, roll string) ([]models.CgpaRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT roll_number, COALESCE(semester, ''), cgpa, created_at
		FROM cgpa_records
		WHERE roll_number = $1
	`, roll)
	if err != nil {
		return nil, unavailable("list cgpa records", err)
	}
	defer rows.Close()

	var records []models.CgpaRecord
	for rows.Next() {
		var (
			rec       models.CgpaRecord
			createdAt sql.NullTime
		)
		if err := rows.Scan(&rec.RollNumber, &rec.Semester, &rec.CGPA, &createdAt); err != nil {
			return nil, unavailable("scan cgpa record", err)
		}
		rec.CreatedAt = createdAt.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list cgpa records", err)
	}
	return records, nil
}

func (p *Postgres) RegulationYears(ctx context.Context, program string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT regulation_year
		FROM regulations
		WHERE program_name = $1
		ORDER BY regulation_year
	`, program)
	if err != nil {
		return nil, unavailable("list regulations", err)
	}
	defer rows.Close()

	var years []string
	for rows.Next() {
		var year string
		if err := rows.Scan(&year); err != nil {
			return nil, unavailable("scan regulation", err)
		}
		years = append(years, year)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list regulations", err)
	}
	return years, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// unavailable classifies a transport failure so errors.Is(err,
// sentinel.ErrUnavailable) holds anywhere up the chain.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, sentinel.ErrUnavailable, err)
}
