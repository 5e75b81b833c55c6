package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/resumeforge/resumeforge/internal/cache"
	"github.com/resumeforge/resumeforge/internal/render"
	"github.com/resumeforge/resumeforge/internal/storage"
	"github.com/resumeforge/resumeforge/internal/store"
	"github.com/resumeforge/resumeforge/pkg/models"
)

const (
	// recentApplicationLimit is how many of the user's latest applications are
	// included in the rendered resume.
	recentApplicationLimit = 3

	// jobStatusTTL bounds how long a job's status stays in the cache for the
	// API's status endpoint to read.
	jobStatusTTL = 24 * time.Hour

	contentTypePDF = "application/pdf"
)

// Config holds the tunable intervals for a Poller.
type Config struct {
	IdleInterval  time.Duration
	ErrorBackoff  time.Duration
	RenderTimeout time.Duration
	ResumeExpiry  time.Duration
}

// Poller is the single consumer loop: it claims the oldest queued resume job,
// renders the document, uploads it, and resolves the job. One job is fully
// resolved before the next claim attempt. All dependencies are injected; the
// poller holds no process-wide state of its own.
type Poller struct {
	store     store.Store
	artifacts storage.ArtifactStore
	renderer  render.Renderer
	cache     cache.Cache
	logger    *slog.Logger
	cfg       Config
}

// New creates a Poller.
func New(s store.Store, artifacts storage.ArtifactStore, r render.Renderer, c cache.Cache, logger *slog.Logger, cfg Config) *Poller {
	return &Poller{
		store:     s,
		artifacts: artifacts,
		renderer:  r,
		cache:     c,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run polls for queued jobs until ctx is cancelled. An empty queue waits the
// idle interval; a claim failure waits the error backoff. A single job's
// failure never stops the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("worker started, polling for resume jobs",
		"idle_interval", p.cfg.IdleInterval,
		"render_timeout", p.cfg.RenderTimeout)

	for {
		job, err := p.store.ClaimNextResumeJob(ctx)
		switch {
		case errors.Is(err, store.ErrNoQueuedJobs):
			if err := sleep(ctx, p.cfg.IdleInterval); err != nil {
				return err
			}
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("claim failed", "error", err)
			if err := sleep(ctx, p.cfg.ErrorBackoff); err != nil {
				return err
			}
		default:
			p.process(ctx, job)
		}
	}
}

// process renders, uploads, and resolves one claimed job. Errors are handled
// here and never propagated to the loop.
func (p *Poller) process(ctx context.Context, job *models.ResumeJob) {
	log := p.logger.With("job_id", job.ID, "user_id", job.UserID)
	log.Info("processing resume job")
	p.setJobStatus(ctx, job.UserID, job.ID, models.JobStatusProcessing)

	objectPath, err := p.generate(ctx, job)
	if err != nil {
		log.Error("resume job failed", "error", err)
		if failErr := p.store.FailResumeJob(ctx, job.ID, err.Error()); failErr != nil {
			// The loop's liveness takes priority over this job's bookkeeping.
			// The row is still PROCESSING, so the cache must not claim FAILED.
			log.Error("could not mark job failed", "error", failErr)
			return
		}
		p.setJobStatus(ctx, job.UserID, job.ID, models.JobStatusFailed)
		return
	}

	p.setJobStatus(ctx, job.UserID, job.ID, models.JobStatusDone)
	log.Info("resume job completed", "object_path", objectPath)
}

// generate runs the render-upload-resolve sequence and returns the stored
// object path.
func (p *Poller) generate(ctx context.Context, job *models.ResumeJob) (string, error) {
	user, err := p.store.GetUserByID(ctx, job.UserID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}

	// A user without a profile still gets a resume; the section is just empty.
	profile, err := p.store.GetProfile(ctx, job.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("load profile: %w", err)
	}

	recentApps, err := p.store.ListRecentApplications(ctx, job.UserID, recentApplicationLimit)
	if err != nil {
		return "", fmt.Errorf("load recent applications: %w", err)
	}

	pdfBytes, err := p.renderWithTimeout(ctx, render.Input{
		User:               user,
		Profile:            profile,
		RecentApplications: recentApps,
		Template:           job.Template,
		GeneratedAt:        time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	objectPath := storage.ResumeObjectPath(job.UserID, time.Now().UTC())
	if _, err := p.artifacts.Upload(ctx, objectPath, contentTypePDF, pdfBytes); err != nil {
		return "", err
	}

	expiresAt := time.Now().UTC().Add(p.cfg.ResumeExpiry)
	if err := p.store.CompleteResumeJob(ctx, job.ID, job.ResumeID, objectPath, expiresAt); err != nil {
		return "", fmt.Errorf("resolve job: %w", err)
	}
	return objectPath, nil
}

// renderWithTimeout bounds a render so a wedged render cannot stall the loop
// forever. The render itself runs in a goroutine; on timeout the job is failed
// and the loop moves on.
func (p *Poller) renderWithTimeout(ctx context.Context, input render.Input) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RenderTimeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := p.renderer.Render(input)
		ch <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("render timed out after %s: %w", p.cfg.RenderTimeout, ctx.Err())
	case res := <-ch:
		return res.data, res.err
	}
}

// setJobStatus mirrors the job's status into the cache for cheap status polls.
// Cache failures are not worth failing a job over.
func (p *Poller) setJobStatus(ctx context.Context, userID, jobID uuid.UUID, status string) {
	if err := p.cache.SetJobStatus(ctx, userID, jobID, status, jobStatusTTL); err != nil {
		p.logger.Warn("cache job status", "job_id", jobID, "error", err)
	}
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
