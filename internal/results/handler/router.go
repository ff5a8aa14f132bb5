package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resulthub/pkg/requestcontext"
)

// NewRouter assembles the full HTTP surface: resolution endpoints plus the
// prometheus scrape endpoint, behind request-scoping middleware.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestScope)
	h.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// requestScope stamps each request with an ID and a request time so services
// and logs see consistent request-scoped values.
func requestScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithRequestID(r.Context(), uuid.NewString())
		ctx = requestcontext.WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
