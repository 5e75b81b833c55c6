package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/resumeforge/resumeforge/internal/api/middleware"
	"github.com/resumeforge/resumeforge/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler       http.HandlerFunc
	EnqueueHandler      http.HandlerFunc
	AvailabilityHandler http.HandlerFunc
	DownloadHandler     http.HandlerFunc
	JobStatusHandler    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/resumes", orNotImplemented(deps.EnqueueHandler))
		r.Get("/api/v1/resumes/availability", orNotImplemented(deps.AvailabilityHandler))
		r.Get("/api/v1/resumes/{resumeID}/download", orNotImplemented(deps.DownloadHandler))
		r.Get("/api/v1/resumes/jobs/{jobID}", orNotImplemented(deps.JobStatusHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
