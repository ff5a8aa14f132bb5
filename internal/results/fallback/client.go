// Package fallback queries external result-lookup web APIs. It is invoked
// only when no configured source has the record, and returns results already
// shaped for the canonical document, so the normalizer passes them through.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"resulthub/internal/results/models"
	"resulthub/pkg/platform/sentinel"
)

// API is one external lookup service.
type API struct {
	Name    string
	BaseURL string
}

// Result is a fallback hit. Semesters and Cgpa come pre-normalized from the
// external API and bypass the store-record coercion path.
type Result struct {
	WebAPI    string
	Student   models.StudentRecord
	Institute models.InstituteRecord
	Semesters []models.SemesterResult
	Cgpa      []models.CgpaEntry
}

// Client tries each configured web API in order, retrying transient failures
// per endpoint with bounded exponential backoff.
type Client struct {
	apis       []API
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxRetries bounds the per-endpoint retry count.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// New constructs a fallback client over the given APIs.
func New(apis []API, opts ...Option) *Client {
	c := &Client{
		apis:       apis,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Names lists the configured web API names in order.
func (c *Client) Names() []string {
	names := make([]string, 0, len(c.apis))
	for _, api := range c.apis {
		names = append(names, api.Name)
	}
	return names
}

// Search looks the student up in each web API in order, returning the first
// hit. A definitive "not found" from an API is not retried; transport and
// server errors are retried a bounded number of times before moving on.
func (c *Client) Search(ctx context.Context, roll, regulation, program string) (*Result, error) {
	if len(c.apis) == 0 {
		return nil, fmt.Errorf("no web apis configured: %w", sentinel.ErrUnavailable)
	}

	lastErr := error(sentinel.ErrNotFound)
	for _, api := range c.apis {
		var result *Result
		operation := func() error {
			r, err := c.searchOne(ctx, api, roll, regulation, program)
			if err != nil {
				return err
			}
			result = r
			return nil
		}

		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
		if err := backoff.Retry(operation, policy); err != nil {
			c.logger.WarnContext(ctx, "web api lookup failed",
				"web_api", api.Name,
				"roll", roll,
				"error", err,
			)
			lastErr = err
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("all web apis failed: %w", lastErr)
}

func (c *Client) searchOne(ctx context.Context, api API, roll, regulation, program string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{
		"rollNo":     roll,
		"regulation": regulation,
		"program":    program,
	})
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api.BaseURL+"/api/search-result", bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", sentinel.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(sentinel.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", sentinel.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc := gjson.ParseBytes(body)
	if !doc.Get("success").Bool() {
		return nil, backoff.Permanent(sentinel.ErrNotFound)
	}
	return parseResult(api.Name, doc), nil
}

// parseResult lifts the external API's document into a Result. Field access
// is tolerant: missing fields become zero values, never parse failures.
func parseResult(apiName string, doc gjson.Result) *Result {
	result := &Result{
		WebAPI: apiName,
		Student: models.StudentRecord{
			RollNumber:     doc.Get("roll").String(),
			RegulationYear: doc.Get("regulation").String(),
			ProgramName:    doc.Get("exam").String(),
		},
		Institute: models.InstituteRecord{
			Code:     doc.Get("instituteData.code").String(),
			Name:     doc.Get("instituteData.name").String(),
			District: doc.Get("instituteData.district").String(),
		},
		Semesters: []models.SemesterResult{},
		Cgpa:      []models.CgpaEntry{},
	}

	for _, entry := range doc.Get("resultData").Array() {
		subjects := []string{}
		for _, s := range entry.Get("result.ref_subjects").Array() {
			subjects = append(subjects, s.String())
		}
		result.Semesters = append(result.Semesters, models.SemesterResult{
			PublishedAt: entry.Get("publishedAt").String(),
			Semester:    entry.Get("semester").String(),
			Result: models.GradeBlock{
				GPA:         entry.Get("result.gpa").String(),
				RefSubjects: subjects,
			},
			Passed: entry.Get("passed").Bool(),
			GPA:    entry.Get("gpa").String(),
		})
	}

	for _, entry := range doc.Get("cgpaData").Array() {
		result.Cgpa = append(result.Cgpa, models.CgpaEntry{
			Semester:    entry.Get("semester").String(),
			CGPA:        entry.Get("cgpa").String(),
			PublishedAt: entry.Get("publishedAt").String(),
		})
	}

	return result
}

// TestConnections probes every configured web API concurrently and reports
// per-API reachability.
func (c *Client) TestConnections(ctx context.Context) map[string]string {
	statuses := make([]string, len(c.apis))

	g, ctx := errgroup.WithContext(ctx)
	for i, api := range c.apis {
		g.Go(func() error {
			statuses[i] = c.probe(ctx, api)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]string, len(c.apis))
	for i, api := range c.apis {
		out[api.Name] = statuses[i]
	}
	return out
}

func (c *Client) probe(ctx context.Context, api API) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.BaseURL, nil)
	if err != nil {
		return "error: " + err.Error()
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "error: " + err.Error()
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 500 {
		return fmt.Sprintf("error: status %d", resp.StatusCode)
	}
	return "connected"
}
