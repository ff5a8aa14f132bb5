// Package store implements record fetching against a single result source.
// Every fetcher is bound to exactly one source at construction time; callers
// pick the source per call instead of mutating shared "current source" state.
package store

import (
	"context"

	"resulthub/internal/results/models"
)

// Fetcher performs the read-only queries against one source. Implementations
// return sentinel.ErrNotFound when the record does not exist and wrap
// transport failures in sentinel.ErrUnavailable so the resolver can tell
// "this source has no such record" from "this source is down".
type Fetcher interface {
	// FindStudent matches on all three fields exactly.
	FindStudent(ctx context.Context, roll, regulation, program string) (*models.StudentRecord, error)

	// FindInstitute looks up institute metadata by code.
	FindInstitute(ctx context.Context, code string) (*models.InstituteRecord, error)

	// GpaRecords returns all semester results for a roll number, ascending
	// by semester. No records is an empty slice, not an error.
	GpaRecords(ctx context.Context, roll string) ([]models.GpaRecord, error)

	// CgpaRecords returns all cumulative records for a roll number.
	CgpaRecords(ctx context.Context, roll string) ([]models.CgpaRecord, error)

	// RegulationYears lists the regulation years available for a program.
	RegulationYears(ctx context.Context, program string) ([]string, error)

	// Ping checks that the source is reachable.
	Ping(ctx context.Context) error
}
