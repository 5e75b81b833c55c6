package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/resumeforge/resumeforge/internal/api/middleware"
	"github.com/resumeforge/resumeforge/internal/store"
	"github.com/resumeforge/resumeforge/pkg/models"
)

// --- mock store ---

type mockStore struct {
	user         *models.User
	appCount     int
	appCountErr  error
	latestResume *models.Resume
	resumes      map[uuid.UUID]*models.Resume
	jobs         map[uuid.UUID]*models.ResumeJob
	enqueueErr   error
	pingErr      error

	enqueued []uuid.UUID
}

func newMockStore() *mockStore {
	return &mockStore{
		resumes: make(map[uuid.UUID]*models.Resume),
		jobs:    make(map[uuid.UUID]*models.ResumeJob),
	}
}

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, store.ErrNotFound
	}
	return m.user, nil
}

func (m *mockStore) GetAPITokenByPrefix(ctx context.Context, prefix string) ([]*models.APIToken, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) UpdateAPITokenLastUsed(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockStore) CreateAPIToken(ctx context.Context, token *models.APIToken) error { return nil }

func (m *mockStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) CountApplications(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.appCountErr != nil {
		return 0, m.appCountErr
	}
	return m.appCount, nil
}

func (m *mockStore) ListRecentApplications(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Application, error) {
	return nil, nil
}

func (m *mockStore) EnqueueResumeJob(ctx context.Context, userID uuid.UUID, template string) (*models.Resume, *models.ResumeJob, error) {
	if m.enqueueErr != nil {
		return nil, nil, m.enqueueErr
	}
	now := time.Now()
	resume := &models.Resume{
		ID: uuid.New(), UserID: userID, Template: template,
		Status: models.ResumeStatusPending, CreatedAt: now, UpdatedAt: now,
	}
	job := &models.ResumeJob{
		ID: uuid.New(), UserID: userID, ResumeID: resume.ID, Template: template,
		Status: models.JobStatusQueued, CreatedAt: now, UpdatedAt: now,
	}
	m.resumes[resume.ID] = resume
	m.jobs[job.ID] = job
	m.enqueued = append(m.enqueued, job.ID)
	return resume, job, nil
}

func (m *mockStore) ClaimNextResumeJob(ctx context.Context) (*models.ResumeJob, error) {
	return nil, store.ErrNoQueuedJobs
}

func (m *mockStore) CompleteResumeJob(ctx context.Context, jobID, resumeID uuid.UUID, objectPath string, expiresAt time.Time) error {
	return nil
}

func (m *mockStore) FailResumeJob(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	return nil
}

func (m *mockStore) GetResume(ctx context.Context, id uuid.UUID) (*models.Resume, error) {
	r, ok := m.resumes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (m *mockStore) GetLatestResume(ctx context.Context, userID uuid.UUID) (*models.Resume, error) {
	if m.latestResume == nil {
		return nil, store.ErrNotFound
	}
	return m.latestResume, nil
}

func (m *mockStore) GetResumeJob(ctx context.Context, id, userID uuid.UUID) (*models.ResumeJob, error) {
	j, ok := m.jobs[id]
	if !ok || j.UserID != userID {
		return nil, store.ErrNotFound
	}
	return j, nil
}

// --- stub cache and signer ---

type stubCache struct {
	statuses map[string]string
	kv       map[string][]byte
	setErr   error
	pingErr  error
}

func newStubCache() *stubCache {
	return &stubCache{
		statuses: make(map[string]string),
		kv:       make(map[string][]byte),
	}
}

func statusKey(userID, jobID uuid.UUID) string {
	return userID.String() + ":" + jobID.String()
}

func (c *stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.kv[key] = value
	return nil
}

func (c *stubCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := c.kv[key]
	return v, ok, nil
}

func (c *stubCache) Delete(ctx context.Context, key string) error { return nil }

func (c *stubCache) Ping(ctx context.Context) error { return c.pingErr }

func (c *stubCache) SetJobStatus(ctx context.Context, userID, jobID uuid.UUID, status string, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.statuses[statusKey(userID, jobID)] = status
	return nil
}

func (c *stubCache) GetJobStatus(ctx context.Context, userID, jobID uuid.UUID) (string, bool, error) {
	s, ok := c.statuses[statusKey(userID, jobID)]
	return s, ok, nil
}

func (c *stubCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	return 1, nil
}

type stubSigner struct {
	url string
	err error

	signedPath string
	signedTTL  time.Duration
}

func (s *stubSigner) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	return path, nil
}

func (s *stubSigner) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	s.signedPath = path
	s.signedTTL = ttl
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

// --- helpers ---

func authedRequest(method, target string, userID uuid.UUID) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	return r.WithContext(mw.SetUserID(r.Context(), userID))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, env.Error.Code
}

func testResumes(s *mockStore, c *stubCache, signer *stubSigner) *Resumes {
	return NewResumes(s, c, signer, 2, time.Hour)
}

// --- enqueue ---

func TestEnqueue_Accepted(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	ms.user = &models.User{ID: userID}
	ms.appCount = 3
	sc := newStubCache()

	h := testResumes(ms, sc, &stubSigner{})
	rec := httptest.NewRecorder()
	h.Enqueue(rec, authedRequest(http.MethodPost, "/api/v1/resumes", userID))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["job_id"] == nil || data["resume_id"] == nil {
		t.Fatalf("missing ids in response: %v", data)
	}
	if len(ms.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(ms.enqueued))
	}
	if got := sc.statuses[statusKey(userID, ms.enqueued[0])]; got != models.JobStatusQueued {
		t.Errorf("expected cached status QUEUED, got %q", got)
	}
}

func TestEnqueue_NotEligible(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	ms.user = &models.User{ID: userID}
	ms.appCount = 1

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	h.Enqueue(rec, authedRequest(http.MethodPost, "/api/v1/resumes", userID))

	status, code := decodeError(t, rec)
	if status != http.StatusForbidden {
		t.Errorf("expected 403, got %d", status)
	}
	if code != "NOT_ELIGIBLE" {
		t.Errorf("expected NOT_ELIGIBLE, got %s", code)
	}
	if len(ms.enqueued) != 0 {
		t.Errorf("ineligible user must not enqueue, got %d jobs", len(ms.enqueued))
	}
}

func TestEnqueue_ExactThreshold(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	ms.user = &models.User{ID: userID}
	ms.appCount = 2

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	h.Enqueue(rec, authedRequest(http.MethodPost, "/api/v1/resumes", userID))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("count == threshold should be eligible, got %d", rec.Code)
	}
}

func TestEnqueue_UserNotFound(t *testing.T) {
	ms := newMockStore()
	ms.appCount = 5

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	h.Enqueue(rec, authedRequest(http.MethodPost, "/api/v1/resumes", uuid.New()))

	status, code := decodeError(t, rec)
	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if code != "USER_NOT_FOUND" {
		t.Errorf("expected USER_NOT_FOUND, got %s", code)
	}
}

func TestEnqueue_NoAuthContext(t *testing.T) {
	h := testResumes(newMockStore(), newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	h.Enqueue(rec, httptest.NewRequest(http.MethodPost, "/api/v1/resumes", nil))

	status, code := decodeError(t, rec)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", status)
	}
	if code != "INVALID_TOKEN" {
		t.Errorf("expected INVALID_TOKEN, got %s", code)
	}
}

func TestEnqueue_StoreError(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	ms.user = &models.User{ID: userID}
	ms.appCount = 3
	ms.enqueueErr = errors.New("db down")

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	h.Enqueue(rec, authedRequest(http.MethodPost, "/api/v1/resumes", userID))

	status, code := decodeError(t, rec)
	if status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", status)
	}
	if code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", code)
	}
}

func TestEnqueue_CacheFailureStillAccepted(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	ms.user = &models.User{ID: userID}
	ms.appCount = 3
	sc := newStubCache()
	sc.setErr = errors.New("redis down")

	h := testResumes(ms, sc, &stubSigner{})
	rec := httptest.NewRecorder()
	h.Enqueue(rec, authedRequest(http.MethodPost, "/api/v1/resumes", userID))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("cache write failure must not fail enqueue, got %d", rec.Code)
	}
}

// --- availability ---

func TestAvailability_Eligible(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	ms.appCount = 4
	ms.latestResume = &models.Resume{
		ID: uuid.New(), UserID: userID, Status: models.ResumeStatusReady,
	}

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	h.Availability(rec, authedRequest(http.MethodGet, "/api/v1/resumes/availability", userID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["eligible"] != true {
		t.Errorf("expected eligible true, got %v", data["eligible"])
	}
	if int(data["application_count"].(float64)) != 4 {
		t.Errorf("unexpected application_count: %v", data["application_count"])
	}
	if data["existing_resume"] == nil {
		t.Errorf("expected existing_resume in response")
	}
}

func TestAvailability_NotEligibleNoResume(t *testing.T) {
	ms := newMockStore()
	ms.appCount = 0

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	h.Availability(rec, authedRequest(http.MethodGet, "/api/v1/resumes/availability", uuid.New()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["eligible"] != false {
		t.Errorf("expected eligible false, got %v", data["eligible"])
	}
	if _, present := data["existing_resume"]; present {
		t.Errorf("existing_resume should be omitted when none exists")
	}
}

func TestAvailability_ServesCachedCount(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	ms.appCount = 5
	sc := newStubCache()

	h := testResumes(ms, sc, &stubSigner{})

	rec := httptest.NewRecorder()
	h.Availability(rec, authedRequest(http.MethodGet, "/api/v1/resumes/availability", userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Second request should read the cached count, not the store
	ms.appCountErr = errors.New("store should not be hit")
	rec = httptest.NewRecorder()
	h.Availability(rec, authedRequest(http.MethodGet, "/api/v1/resumes/availability", userID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from cache, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if int(data["application_count"].(float64)) != 5 {
		t.Errorf("unexpected cached count: %v", data["application_count"])
	}
}

// --- download ---

func TestDownload_Ready(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	resume := &models.Resume{
		ID: uuid.New(), UserID: userID,
		ObjectPath: "resumes/abc/123.pdf",
		Status:     models.ResumeStatusReady,
	}
	ms.resumes[resume.ID] = resume
	signer := &stubSigner{url: "https://storage.example.com/signed"}

	h := testResumes(ms, newStubCache(), signer)
	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/"+resume.ID.String()+"/download", userID)
	h.Download(rec, withURLParam(r, "resumeID", resume.ID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["download_url"] != "https://storage.example.com/signed" {
		t.Errorf("unexpected url: %v", data["download_url"])
	}
	if signer.signedPath != resume.ObjectPath {
		t.Errorf("signed wrong path: %q", signer.signedPath)
	}
	if signer.signedTTL != time.Hour {
		t.Errorf("expected configured TTL, got %v", signer.signedTTL)
	}
}

func TestDownload_NotReady(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	resume := &models.Resume{
		ID: uuid.New(), UserID: userID,
		Status: models.ResumeStatusPending,
	}
	ms.resumes[resume.ID] = resume

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/"+resume.ID.String()+"/download", userID)
	h.Download(rec, withURLParam(r, "resumeID", resume.ID.String()))

	status, code := decodeError(t, rec)
	if status != http.StatusConflict {
		t.Errorf("expected 409, got %d", status)
	}
	if code != "RESUME_NOT_READY" {
		t.Errorf("expected RESUME_NOT_READY, got %s", code)
	}
}

func TestDownload_WrongOwner(t *testing.T) {
	ms := newMockStore()
	resume := &models.Resume{
		ID: uuid.New(), UserID: uuid.New(),
		ObjectPath: "resumes/abc/123.pdf",
		Status:     models.ResumeStatusReady,
	}
	ms.resumes[resume.ID] = resume

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/"+resume.ID.String()+"/download", uuid.New())
	h.Download(rec, withURLParam(r, "resumeID", resume.ID.String()))

	status, code := decodeError(t, rec)
	if status != http.StatusForbidden {
		t.Errorf("expected 403, got %d", status)
	}
	if code != "FORBIDDEN" {
		t.Errorf("expected FORBIDDEN, got %s", code)
	}
}

func TestDownload_NotFound(t *testing.T) {
	h := testResumes(newMockStore(), newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	id := uuid.New()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/"+id.String()+"/download", uuid.New())
	h.Download(rec, withURLParam(r, "resumeID", id.String()))

	status, code := decodeError(t, rec)
	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if code != "RESUME_NOT_FOUND" {
		t.Errorf("expected RESUME_NOT_FOUND, got %s", code)
	}
}

func TestDownload_BadID(t *testing.T) {
	h := testResumes(newMockStore(), newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/not-a-uuid/download", uuid.New())
	h.Download(rec, withURLParam(r, "resumeID", "not-a-uuid"))

	status, code := decodeError(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
	if code != "INVALID_REQUEST" {
		t.Errorf("expected INVALID_REQUEST, got %s", code)
	}
}

func TestDownload_SignerError(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	resume := &models.Resume{
		ID: uuid.New(), UserID: userID,
		ObjectPath: "resumes/abc/123.pdf",
		Status:     models.ResumeStatusReady,
	}
	ms.resumes[resume.ID] = resume
	signer := &stubSigner{err: errors.New("signing key unavailable")}

	h := testResumes(ms, newStubCache(), signer)
	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/"+resume.ID.String()+"/download", userID)
	h.Download(rec, withURLParam(r, "resumeID", resume.ID.String()))

	status, code := decodeError(t, rec)
	if status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", status)
	}
	if code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", code)
	}
}

// --- job status ---

func TestJobStatus_FromCache(t *testing.T) {
	userID := uuid.New()
	jobID := uuid.New()
	sc := newStubCache()
	sc.statuses[statusKey(userID, jobID)] = models.JobStatusProcessing

	h := testResumes(newMockStore(), sc, &stubSigner{})
	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/jobs/"+jobID.String(), userID)
	h.JobStatus(rec, withURLParam(r, "jobID", jobID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["status"] != models.JobStatusProcessing {
		t.Errorf("expected PROCESSING from cache, got %v", data["status"])
	}
}

func TestJobStatus_FallsBackToStore(t *testing.T) {
	userID := uuid.New()
	ms := newMockStore()
	job := &models.ResumeJob{
		ID: uuid.New(), UserID: userID, ResumeID: uuid.New(),
		Status: models.JobStatusDone,
	}
	ms.jobs[job.ID] = job

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/jobs/"+job.ID.String(), userID)
	h.JobStatus(rec, withURLParam(r, "jobID", job.ID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["status"] != models.JobStatusDone {
		t.Errorf("expected DONE, got %v", data["status"])
	}
	if data["resume_id"] != job.ResumeID.String() {
		t.Errorf("unexpected resume_id: %v", data["resume_id"])
	}
}

func TestJobStatus_OtherUsersJobHidden(t *testing.T) {
	ms := newMockStore()
	job := &models.ResumeJob{
		ID: uuid.New(), UserID: uuid.New(),
		Status: models.JobStatusDone,
	}
	ms.jobs[job.ID] = job

	h := testResumes(ms, newStubCache(), &stubSigner{})
	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/jobs/"+job.ID.String(), uuid.New())
	h.JobStatus(rec, withURLParam(r, "jobID", job.ID.String()))

	status, code := decodeError(t, rec)
	if status != http.StatusNotFound {
		t.Errorf("expected 404 for another user's job, got %d", status)
	}
	if code != "JOB_NOT_FOUND" {
		t.Errorf("expected JOB_NOT_FOUND, got %s", code)
	}
}

func TestJobStatus_CachedStatusHiddenFromNonOwner(t *testing.T) {
	ownerID := uuid.New()
	ms := newMockStore()
	job := &models.ResumeJob{
		ID: uuid.New(), UserID: ownerID, ResumeID: uuid.New(),
		Status: models.JobStatusDone,
	}
	ms.jobs[job.ID] = job

	// Status is hot in the cache, as it would be for the job's whole lifetime
	// once the worker has touched it.
	sc := newStubCache()
	sc.statuses[statusKey(ownerID, job.ID)] = models.JobStatusDone

	h := testResumes(ms, sc, &stubSigner{})

	// Owner sees the cached status.
	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodGet, "/api/v1/resumes/jobs/"+job.ID.String(), ownerID)
	h.JobStatus(rec, withURLParam(r, "jobID", job.ID.String()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", rec.Code)
	}

	// Anyone else gets 404 even though the status is cached.
	rec = httptest.NewRecorder()
	r = authedRequest(http.MethodGet, "/api/v1/resumes/jobs/"+job.ID.String(), uuid.New())
	h.JobStatus(rec, withURLParam(r, "jobID", job.ID.String()))

	status, code := decodeError(t, rec)
	if status != http.StatusNotFound {
		t.Errorf("expected 404 for non-owner with warm cache, got %d", status)
	}
	if code != "JOB_NOT_FOUND" {
		t.Errorf("expected JOB_NOT_FOUND, got %s", code)
	}
}
