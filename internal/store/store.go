package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/resumeforge/resumeforge/pkg/models"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrNoQueuedJobs is returned by ClaimNextResumeJob when the queue is empty.
	ErrNoQueuedJobs = errors.New("no queued jobs")

	// ErrInvalidTransition is returned when a job or resume is no longer in the
	// state a conditional update requires. Resolution is exactly-once: a second
	// resolver observes this instead of overwriting a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	GetAPITokenByPrefix(ctx context.Context, prefix string) ([]*models.APIToken, error)
	UpdateAPITokenLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIToken(ctx context.Context, token *models.APIToken) error

	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	CountApplications(ctx context.Context, userID uuid.UUID) (int, error)
	ListRecentApplications(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Application, error)

	EnqueueResumeJob(ctx context.Context, userID uuid.UUID, template string) (*models.Resume, *models.ResumeJob, error)
	ClaimNextResumeJob(ctx context.Context) (*models.ResumeJob, error)
	CompleteResumeJob(ctx context.Context, jobID, resumeID uuid.UUID, objectPath string, expiresAt time.Time) error
	FailResumeJob(ctx context.Context, jobID uuid.UUID, errMsg string) error

	GetResume(ctx context.Context, id uuid.UUID) (*models.Resume, error)
	GetLatestResume(ctx context.Context, userID uuid.UUID) (*models.Resume, error)
	GetResumeJob(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.ResumeJob, error)
}
