package service

import (
	"context"

	"resulthub/internal/results/sources"
	dErrors "resulthub/pkg/domain-errors"
)

// SourceStatus describes one configured source for listings. Endpoints are
// exposed; credentials never are.
type SourceStatus struct {
	Name        string
	Description string
	Endpoint    string
	Active      bool
}

// HealthStatus reports reachability of the active source.
type HealthStatus struct {
	Healthy      bool
	ActiveSource string
	Sources      []string
	Err          string
}

// Sources lists every registered source in registration order.
func (s *Service) Sources() []SourceStatus {
	active := s.registry.ActiveName()
	handles := s.registry.All()
	out := make([]SourceStatus, 0, len(handles))
	for _, h := range handles {
		out = append(out, SourceStatus{
			Name:        h.Source.Name,
			Description: h.Source.Description,
			Endpoint:    h.Source.Endpoint,
			Active:      h.Source.Name == active,
		})
	}
	return out
}

// SwitchSource makes name the active source and returns the prior one.
func (s *Service) SwitchSource(name string) (string, error) {
	previous, err := s.registry.Switch(name)
	if err != nil {
		return "", err
	}
	s.logger.Info("active source switched", "from", previous, "to", name)
	return previous, nil
}

// TestSource temporarily switches to the named source, pings it, and restores
// the prior active source on every exit path.
func (s *Service) TestSource(ctx context.Context, name string) error {
	previous, err := s.registry.Switch(name)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = s.registry.Switch(previous)
	}()

	handle, ok := s.registry.Lookup(name)
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "source not found: "+name)
	}
	qctx, cancel := s.queryContext(ctx)
	defer cancel()
	if err := handle.Fetcher.Ping(qctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "source connection failed: "+name)
	}
	return nil
}

// Health pings the currently active source and reports the configured set.
func (s *Service) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		ActiveSource: s.registry.ActiveName(),
		Sources:      sourceNames(s.registry.All()),
	}

	handle, ok := s.registry.Active()
	if !ok {
		status.Err = "no active source configured"
		return status
	}

	qctx, cancel := s.queryContext(ctx)
	defer cancel()
	if err := handle.Fetcher.Ping(qctx); err != nil {
		status.Err = err.Error()
		return status
	}
	status.Healthy = true
	return status
}

// Regulations lists the regulation years available for a program, queried
// against the active source. Independent of the resolution path.
func (s *Service) Regulations(ctx context.Context, program string) ([]string, error) {
	if program == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "program is required")
	}
	handle, ok := s.registry.Active()
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnavailable, "no active source configured")
	}

	qctx, cancel := s.queryContext(ctx)
	defer cancel()
	years, err := handle.Fetcher.RegulationYears(qctx, program)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "regulation lookup failed")
	}
	return years, nil
}

// WebAPIs lists the configured fallback services.
func (s *Service) WebAPIs() []string {
	return s.fallback.Names()
}

// TestWebAPIs probes every configured fallback service.
func (s *Service) TestWebAPIs(ctx context.Context) map[string]string {
	return s.fallback.TestConnections(ctx)
}

func sourceNames(handles []*sources.Handle) []string {
	names := make([]string, 0, len(handles))
	for _, h := range handles {
		names = append(names, h.Source.Name)
	}
	return names
}
