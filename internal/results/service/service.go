// Package service implements the federated resolution engine: the ordered
// multi-source scan, cross-source record assembly and the web API fallback.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"resulthub/internal/results/fallback"
	"resulthub/internal/results/metrics"
	"resulthub/internal/results/models"
	"resulthub/internal/results/sources"
	dErrors "resulthub/pkg/domain-errors"
	"resulthub/pkg/platform/sentinel"
	"resulthub/pkg/requestcontext"
)

// Fallback is the web API lookup contract the resolver depends on.
type Fallback interface {
	Search(ctx context.Context, roll, regulation, program string) (*fallback.Result, error)
	Names() []string
	TestConnections(ctx context.Context) map[string]string
}

// Service coordinates the source registry, per-source fetchers and the
// fallback client. Resolution never mutates the registry's active pointer;
// every fetch names its source explicitly, so concurrent resolutions share
// nothing mutable.
type Service struct {
	registry     *sources.Registry
	fallback     Fallback
	logger       *slog.Logger
	metrics      *metrics.Metrics
	queryTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches resolution metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithQueryTimeout bounds each individual source query.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// New constructs the resolution service.
func New(registry *sources.Registry, fb Fallback, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("source registry is required")
	}
	if fb == nil {
		return nil, fmt.Errorf("fallback client is required")
	}

	svc := &Service{
		registry:     registry,
		fallback:     fb,
		logger:       slog.Default(),
		queryTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// MissError reports that no configured source and no web API had the record.
// It is a structured outcome, not a fault: the handler renders it as the
// canonical miss document.
type MissError struct {
	Query            models.Query
	ProjectsSearched []string
	WebAPIsTried     []string
}

func (e *MissError) Error() string {
	return fmt.Sprintf("student %s not found in %d sources or %d web apis",
		e.Query.Roll, len(e.ProjectsSearched), len(e.WebAPIsTried))
}

// Resolve runs the federated lookup: sources in priority order, first match
// wins, web API fallback on a total miss. An unavailable source is skipped,
// never fatal; only when every source passes does control reach the fallback.
func (s *Service) Resolve(ctx context.Context, q models.Query) (*models.Resolution, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveResolveDuration(time.Since(start).Seconds())
		}
	}()

	order := s.registry.SearchOrder()
	res := s.scanSources(ctx, q, order)
	if res == nil {
		return s.searchFallback(ctx, q, order)
	}

	s.fetchGpa(ctx, res)
	s.fetchCgpa(ctx, res, order)

	if s.metrics != nil {
		s.metrics.RecordSourceHit(res.SourceName)
	}
	s.logger.InfoContext(ctx, "student resolved",
		"request_id", requestcontext.RequestID(ctx),
		"roll", q.Roll,
		"source", res.SourceName,
		"semesters", len(res.Gpa),
	)
	return res, nil
}

// scanSources walks the priority order and returns the first source that has
// both the student and a usable institute record. NotFound advances to the
// next source; any other failure downgrades to "source unavailable" so one
// misbehaving source cannot abort the whole scan.
func (s *Service) scanSources(ctx context.Context, q models.Query, order []string) *models.Resolution {
	for _, name := range order {
		handle, ok := s.registry.Lookup(name)
		if !ok {
			continue
		}

		student, err := s.findStudent(ctx, handle, q)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			s.skipUnavailable(ctx, name, "student lookup failed", err)
			continue
		}

		res := &models.Resolution{
			Origin:     models.OriginStore,
			SourceName: name,
			Student:    *student,
		}

		institute, err := s.findInstitute(ctx, handle, student.InstituteCode)
		switch {
		case err == nil:
			res.Institute = *institute
		case errors.Is(err, sentinel.ErrNotFound):
			res.Institute = models.InstituteRecord{Code: student.InstituteCode}
			res.Warnings = append(res.Warnings, "institute record missing in source "+name)
		default:
			s.skipUnavailable(ctx, name, "institute lookup failed", err)
			continue
		}
		return res
	}
	return nil
}

// fetchGpa pulls semester records from the same source that held the student
// record. Best-effort: a failure degrades to an empty list plus a warning,
// never a request failure.
func (s *Service) fetchGpa(ctx context.Context, res *models.Resolution) {
	handle, ok := s.registry.Lookup(res.SourceName)
	if !ok {
		return
	}
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	records, err := handle.Fetcher.GpaRecords(qctx, res.Student.RollNumber)
	if err != nil {
		s.logger.WarnContext(ctx, "gpa records unavailable",
			"source", res.SourceName,
			"roll", res.Student.RollNumber,
			"error", err,
		)
		res.Warnings = append(res.Warnings, "gpa records unavailable from source "+res.SourceName)
		return
	}
	res.Gpa = records
}

// fetchCgpa re-scans the full search order independently of where the student
// was found, stopping at the first source with a non-empty result. Cumulative
// records may be centralized in a source other than the student's.
func (s *Service) fetchCgpa(ctx context.Context, res *models.Resolution, order []string) {
	for _, name := range order {
		handle, ok := s.registry.Lookup(name)
		if !ok {
			continue
		}
		qctx, cancel := s.queryContext(ctx)
		records, err := handle.Fetcher.CgpaRecords(qctx, res.Student.RollNumber)
		cancel()
		if err != nil {
			s.logger.WarnContext(ctx, "cgpa lookup failed",
				"source", name,
				"roll", res.Student.RollNumber,
				"error", err,
			)
			res.Warnings = append(res.Warnings, "cgpa lookup failed on source "+name)
			continue
		}
		if len(records) > 0 {
			res.Cgpa = records
			return
		}
	}
}

// searchFallback invokes the web API fallback exactly once with the original
// request fields unchanged. Its failure yields the structured miss.
func (s *Service) searchFallback(ctx context.Context, q models.Query, order []string) (*models.Resolution, error) {
	if s.metrics != nil {
		s.metrics.RecordFallbackSearch()
	}
	s.logger.InfoContext(ctx, "student not found in any source, trying web apis",
		"request_id", requestcontext.RequestID(ctx),
		"roll", q.Roll,
	)

	result, err := s.fallback.Search(ctx, q.Roll, q.Regulation, q.Program)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordMiss()
		}
		return nil, &MissError{
			Query:            q,
			ProjectsSearched: order,
			WebAPIsTried:     s.fallback.Names(),
		}
	}

	if s.metrics != nil {
		s.metrics.RecordFallbackHit()
	}
	return &models.Resolution{
		Origin:      models.OriginFallback,
		SourceName:  result.WebAPI,
		Student:     result.Student,
		Institute:   result.Institute,
		Semesters:   result.Semesters,
		CgpaEntries: result.Cgpa,
	}, nil
}

func (s *Service) findStudent(ctx context.Context, handle *sources.Handle, q models.Query) (*models.StudentRecord, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()
	return handle.Fetcher.FindStudent(qctx, q.Roll, q.Regulation, q.Program)
}

func (s *Service) findInstitute(ctx context.Context, handle *sources.Handle, code string) (*models.InstituteRecord, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()
	return handle.Fetcher.FindInstitute(qctx, code)
}

func (s *Service) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *Service) skipUnavailable(ctx context.Context, source, msg string, err error) {
	s.logger.WarnContext(ctx, "source unavailable, skipping",
		"source", source,
		"reason", msg,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.RecordSourceUnavailable(source)
	}
}

func validateQuery(q models.Query) error {
	var missing []string
	if q.Roll == "" {
		missing = append(missing, "rollNo")
	}
	if q.Regulation == "" {
		missing = append(missing, "regulation")
	}
	if q.Program == "" {
		missing = append(missing, "program")
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeBadRequest, "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}
