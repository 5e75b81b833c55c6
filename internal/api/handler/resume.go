package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/resumeforge/resumeforge/internal/api/middleware"
	"github.com/resumeforge/resumeforge/internal/api/response"
	"github.com/resumeforge/resumeforge/internal/cache"
	"github.com/resumeforge/resumeforge/internal/storage"
	"github.com/resumeforge/resumeforge/internal/store"
	"github.com/resumeforge/resumeforge/pkg/models"
)

const defaultTemplate = "default"

// availabilityTTL bounds how stale the advisory application count may be.
// Enqueue always re-counts, so this never affects eligibility enforcement.
const availabilityTTL = 30 * time.Second

// Resumes bundles the resume endpoints' dependencies.
type Resumes struct {
	store           store.Store
	cache           cache.Cache
	artifacts       storage.ArtifactStore
	minApplications int
	signedURLTTL    time.Duration
}

// NewResumes creates the resume handler set.
func NewResumes(s store.Store, c cache.Cache, artifacts storage.ArtifactStore, minApplications int, signedURLTTL time.Duration) *Resumes {
	return &Resumes{
		store:           s,
		cache:           c,
		artifacts:       artifacts,
		minApplications: minApplications,
		signedURLTTL:    signedURLTTL,
	}
}

// Enqueue handles POST /api/v1/resumes. It re-checks eligibility server-side
// and atomically creates a PENDING resume placeholder plus a QUEUED job, which
// the worker later claims. Responds 202 with both IDs.
func (h *Resumes) Enqueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Not authenticated", nil)
		return
	}

	if _, err := h.store.GetUserByID(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user", nil)
		return
	}

	// Eligibility is re-checked here rather than trusting any client-supplied
	// flag; a stale availability response must not allow an enqueue.
	count, err := h.store.CountApplications(r.Context(), userID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check eligibility", nil)
		return
	}
	if count < h.minApplications {
		response.Error(w, http.StatusForbidden, "NOT_ELIGIBLE",
			fmt.Sprintf("Apply to at least %d jobs to generate a resume", h.minApplications),
			map[string]int{"application_count": count})
		return
	}

	resume, job, err := h.store.EnqueueResumeJob(r.Context(), userID, defaultTemplate)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to enqueue resume job", nil)
		return
	}

	if err := h.cache.SetJobStatus(r.Context(), userID, job.ID, job.Status, time.Hour); err != nil {
		slog.Warn("cache job status", "job_id", job.ID, "error", err)
	}

	response.Accepted(w, map[string]any{
		"job_id":    job.ID,
		"resume_id": resume.ID,
	})
}

// Availability handles GET /api/v1/resumes/availability. It reports whether
// the user may generate a resume and includes their latest resume record, if
// any, so clients can poll for completion.
func (h *Resumes) Availability(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Not authenticated", nil)
		return
	}

	count, err := h.applicationCount(r.Context(), userID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check eligibility", nil)
		return
	}

	var existing *models.Resume
	latest, err := h.store.GetLatestResume(r.Context(), userID)
	switch {
	case err == nil:
		existing = latest
	case errors.Is(err, store.ErrNotFound):
		// No resume yet; omitted from the response.
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load resume", nil)
		return
	}

	body := map[string]any{
		"eligible":          count >= h.minApplications,
		"application_count": count,
	}
	if existing != nil {
		body["existing_resume"] = existing
	}
	response.JSON(w, body)
}

// applicationCount reads the user's application count through a short cache.
// Cache misses and errors fall through to the store.
func (h *Resumes) applicationCount(ctx context.Context, userID uuid.UUID) (int, error) {
	key := cache.AvailabilityKey(userID)
	if raw, found, err := h.cache.Get(ctx, key); err == nil && found {
		if count, convErr := strconv.Atoi(string(raw)); convErr == nil {
			return count, nil
		}
	}

	count, err := h.store.CountApplications(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := h.cache.Set(ctx, key, []byte(strconv.Itoa(count)), availabilityTTL); err != nil {
		slog.Warn("cache application count", "user_id", userID, "error", err)
	}
	return count, nil
}

// Download handles GET /api/v1/resumes/{resumeID}/download. Each successful
// request mints a fresh signed URL; URLs are never persisted.
func (h *Resumes) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Not authenticated", nil)
		return
	}

	resumeID, err := uuid.Parse(chi.URLParam(r, "resumeID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid resume id", nil)
		return
	}

	resume, err := h.store.GetResume(r.Context(), resumeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESUME_NOT_FOUND", "Resume not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load resume", nil)
		return
	}

	if resume.UserID != userID {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}
	if resume.Status != models.ResumeStatusReady {
		response.Error(w, http.StatusConflict, "RESUME_NOT_READY", "Resume not ready", nil)
		return
	}

	url, err := h.artifacts.SignedURL(r.Context(), resume.ObjectPath, h.signedURLTTL)
	if err != nil {
		slog.Error("sign download url", "resume_id", resume.ID, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to sign download URL", nil)
		return
	}

	response.JSON(w, map[string]any{"download_url": url})
}

// JobStatus handles GET /api/v1/resumes/jobs/{jobID}. The cache is tried
// first; on a miss the job is read from the store, scoped to the requester.
func (h *Resumes) JobStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Not authenticated", nil)
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job id", nil)
		return
	}

	// The cache key carries the requester's ID, so a hit is already scoped to
	// the job's owner; other users fall through to the store and get 404.
	if status, found, err := h.cache.GetJobStatus(r.Context(), userID, jobID); err == nil && found {
		response.JSON(w, map[string]any{"id": jobID, "status": status})
		return
	}

	job, err := h.store.GetResumeJob(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
		return
	}

	response.JSON(w, map[string]any{
		"id":        job.ID,
		"status":    job.Status,
		"resume_id": job.ResumeID,
	})
}
