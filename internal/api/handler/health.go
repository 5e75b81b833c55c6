package handler

import (
	"net/http"

	"github.com/resumeforge/resumeforge/internal/api/response"
	"github.com/resumeforge/resumeforge/internal/cache"
	"github.com/resumeforge/resumeforge/internal/store"
)

// Health reports liveness of the API's backing services. Postgres is
// required; a Redis outage degrades the response but keeps status 200
// since the API can serve without the cache.
func Health(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "ok"
		if err := s.Ping(r.Context()); err != nil {
			dbStatus = "unavailable"
		}
		cacheStatus := "ok"
		if err := c.Ping(r.Context()); err != nil {
			cacheStatus = "degraded"
		}

		body := map[string]string{
			"status":   "ok",
			"database": dbStatus,
			"cache":    cacheStatus,
		}
		if dbStatus != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unreachable", body)
			return
		}
		response.JSON(w, body)
	}
}
