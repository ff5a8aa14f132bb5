// Package handler wires the result-resolution endpoints to the service. It
// stays thin: decode, delegate, translate outcomes into wire shapes.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"resulthub/internal/results/models"
	"resulthub/internal/results/normalize"
	"resulthub/internal/results/service"
	"resulthub/pkg/platform/httputil"
	"resulthub/pkg/requestcontext"
)

// Service defines the resolution operations the handler depends on.
type Service interface {
	Resolve(ctx context.Context, q models.Query) (*models.Resolution, error)
	Sources() []service.SourceStatus
	SwitchSource(name string) (string, error)
	TestSource(ctx context.Context, name string) error
	Health(ctx context.Context) service.HealthStatus
	Regulations(ctx context.Context, program string) ([]string, error)
	WebAPIs() []string
	TestWebAPIs(ctx context.Context) map[string]string
}

// Handler exposes the HTTP surface of the resolution service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts all endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Post("/api/search-result", h.HandleSearchResult)
	r.Get("/api/projects", h.HandleListSources)
	r.Get("/api/projects/{name}/test", h.HandleTestSource)
	r.Post("/api/projects/{name}/switch", h.HandleSwitchSource)
	r.Get("/api/web-apis", h.HandleListWebAPIs)
	r.Get("/api/web-apis/test", h.HandleTestWebAPIs)
	r.Get("/api/regulations/{program}", h.HandleRegulations)
}

// SearchRequest is the resolve request body.
type SearchRequest struct {
	RollNo     string `json:"rollNo"`
	Regulation string `json:"regulation"`
	Program    string `json:"program"`
}

// Query converts the wire request into a domain query.
func (r SearchRequest) Query() models.Query {
	return models.Query{Roll: r.RollNo, Regulation: r.Regulation, Program: r.Program}
}

// HandleSearchResult handles POST /api/search-result.
func (h *Handler) HandleSearchResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeJSON[SearchRequest](w, r)
	if !ok {
		return
	}

	res, err := h.service.Resolve(ctx, req.Query())
	if err != nil {
		var miss *service.MissError
		if errors.As(err, &miss) {
			h.logger.InfoContext(ctx, "resolution miss",
				"request_id", requestID,
				"roll", miss.Query.Roll,
				"projects_searched", len(miss.ProjectsSearched),
			)
			httputil.WriteJSON(w, http.StatusNotFound,
				normalize.MissDocument(miss.Query, miss.ProjectsSearched, miss.WebAPIsTried))
			return
		}
		h.logger.ErrorContext(ctx, "resolution failed",
			"request_id", requestID,
			"roll", req.RollNo,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "result served",
		"request_id", requestID,
		"roll", res.Student.RollNumber,
		"origin", res.Origin,
		"source", res.SourceName,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, normalize.Document(res))
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.service.Health(r.Context())
	resp := healthResponse{
		Status:          "healthy",
		SourceConnected: status.Healthy,
		ActiveSource:    status.ActiveSource,
		Sources:         status.Sources,
		Error:           status.Err,
	}
	if !status.Healthy {
		resp.Status = "unhealthy"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleListSources handles GET /api/projects.
func (h *Handler) HandleListSources(w http.ResponseWriter, _ *http.Request) {
	statuses := h.service.Sources()
	resp := make(map[string]sourceInfo, len(statuses))
	for _, st := range statuses {
		resp[st.Name] = sourceInfo{
			Name:        st.Name,
			Description: st.Description,
			URL:         st.Endpoint,
			IsActive:    st.Active,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleTestSource handles GET /api/projects/{name}/test.
func (h *Handler) HandleTestSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.TestSource(r.Context(), name); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, testSourceResponse{
		Source:  name,
		Status:  "connected",
		Message: "source connection successful",
	})
}

// HandleSwitchSource handles POST /api/projects/{name}/switch.
func (h *Handler) HandleSwitchSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := h.service.SwitchSource(name); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, switchSourceResponse{
		Message:      "switched to source: " + name,
		ActiveSource: name,
	})
}

// HandleListWebAPIs handles GET /api/web-apis.
func (h *Handler) HandleListWebAPIs(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, webAPIsResponse{WebAPIs: h.service.WebAPIs()})
}

// HandleTestWebAPIs handles GET /api/web-apis/test.
func (h *Handler) HandleTestWebAPIs(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.TestWebAPIs(r.Context()))
}

// HandleRegulations handles GET /api/regulations/{program}.
func (h *Handler) HandleRegulations(w http.ResponseWriter, r *http.Request) {
	program := chi.URLParam(r, "program")
	years, err := h.service.Regulations(r.Context(), program)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if years == nil {
		years = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, regulationsResponse{Regulations: years})
}
