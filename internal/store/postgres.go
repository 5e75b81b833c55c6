package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/resumeforge/resumeforge/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- API Tokens ---

func (s *PostgresStore) GetAPITokenByPrefix(ctx context.Context, prefix string) ([]*models.APIToken, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, token_hash, token_prefix, last_used_at, revoked_at, created_at, updated_at
		 FROM api_tokens WHERE token_prefix = $1 AND revoked_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api token by prefix: %w", err)
	}
	defer rows.Close()

	var tokens []*models.APIToken
	for rows.Next() {
		var t models.APIToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.TokenPrefix,
			&t.LastUsedAt, &t.RevokedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

func (s *PostgresStore) UpdateAPITokenLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_tokens SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api token last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIToken(ctx context.Context, token *models.APIToken) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_tokens (id, user_id, name, token_hash, token_prefix, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		token.ID, token.UserID, token.Name, token.TokenHash, token.TokenPrefix,
		token.CreatedAt, token.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api token: %w", err)
	}
	return nil
}

// --- Profiles & Applications ---

func (s *PostgresStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, headline, skills, experience, created_at, updated_at
		 FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.ID, &p.UserID, &p.Headline, &p.Skills, &p.Experience, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) CountApplications(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM applications WHERE candidate_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListRecentApplications(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, job_title, company, created_at
		 FROM applications WHERE candidate_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		var a models.Application
		if err := rows.Scan(&a.ID, &a.CandidateID, &a.JobTitle, &a.Company, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, &a)
	}
	return apps, rows.Err()
}

// --- Resume Job Queue ---

// EnqueueResumeJob creates a PENDING resume placeholder and a QUEUED job
// referencing it in a single transaction. Eligibility is the caller's concern.
func (s *PostgresStore) EnqueueResumeJob(ctx context.Context, userID uuid.UUID, template string) (*models.Resume, *models.ResumeJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin enqueue: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	resume := &models.Resume{
		ID:        uuid.New(),
		UserID:    userID,
		Template:  template,
		Status:    models.ResumeStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO resumes (id, user_id, object_path, template, status, created_at, updated_at)
		 VALUES ($1, $2, '', $3, $4, $5, $6)`,
		resume.ID, resume.UserID, resume.Template, resume.Status, resume.CreatedAt, resume.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert resume placeholder: %w", err)
	}

	job := &models.ResumeJob{
		ID:        uuid.New(),
		UserID:    userID,
		ResumeID:  resume.ID,
		Template:  template,
		Status:    models.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO resume_jobs (id, user_id, resume_id, template, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.UserID, job.ResumeID, job.Template, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert resume job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit enqueue: %w", err)
	}
	return resume, job, nil
}

// ClaimNextResumeJob atomically transitions the oldest QUEUED job to PROCESSING
// and returns it. The claim is a single conditional update guarded by
// FOR UPDATE SKIP LOCKED, so concurrent workers never claim the same job.
// Returns ErrNoQueuedJobs when the queue is empty.
func (s *PostgresStore) ClaimNextResumeJob(ctx context.Context) (*models.ResumeJob, error) {
	var j models.ResumeJob
	err := s.pool.QueryRow(ctx,
		`UPDATE resume_jobs SET status = $1, started_at = NOW(), updated_at = NOW()
		 WHERE id = (
		   SELECT id FROM resume_jobs
		   WHERE status = $2
		   ORDER BY created_at, id
		   LIMIT 1
		   FOR UPDATE SKIP LOCKED
		 ) AND status = $2
		 RETURNING id, user_id, resume_id, template, status, error_message, started_at, processed_at, created_at, updated_at`,
		models.JobStatusProcessing, models.JobStatusQueued,
	).Scan(&j.ID, &j.UserID, &j.ResumeID, &j.Template, &j.Status, &j.ErrorMessage,
		&j.StartedAt, &j.ProcessedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoQueuedJobs
	}
	if err != nil {
		return nil, fmt.Errorf("claim next resume job: %w", err)
	}
	return &j, nil
}

// CompleteResumeJob marks the resume READY at objectPath and the job DONE in one
// transaction. Both updates are conditional on the current status; if either row
// already left the expected state the transaction is rolled back and
// ErrInvalidTransition is returned.
func (s *PostgresStore) CompleteResumeJob(ctx context.Context, jobID, resumeID uuid.UUID, objectPath string, expiresAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin complete: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE resumes SET object_path = $2, status = $3, generated_at = NOW(), expires_at = $4, updated_at = NOW()
		 WHERE id = $1 AND status = $5`,
		resumeID, objectPath, models.ResumeStatusReady, expiresAt, models.ResumeStatusPending)
	if err != nil {
		return fmt.Errorf("mark resume ready: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	tag, err = tx.Exec(ctx,
		`UPDATE resume_jobs SET status = $2, processed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = $3`,
		jobID, models.JobStatusDone, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit complete: %w", err)
	}
	return nil
}

// FailResumeJob marks a PROCESSING job FAILED and records the error message.
// The resume placeholder stays PENDING. Returns ErrInvalidTransition if the job
// is not currently PROCESSING.
func (s *PostgresStore) FailResumeJob(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE resume_jobs SET status = $2, error_message = $3, processed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = $4`,
		jobID, models.JobStatusFailed, errMsg, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// --- Resumes ---

func (s *PostgresStore) GetResume(ctx context.Context, id uuid.UUID) (*models.Resume, error) {
	var r models.Resume
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, object_path, template, status, generated_at, expires_at, created_at, updated_at
		 FROM resumes WHERE id = $1`, id,
	).Scan(&r.ID, &r.UserID, &r.ObjectPath, &r.Template, &r.Status,
		&r.GeneratedAt, &r.ExpiresAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resume: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) GetLatestResume(ctx context.Context, userID uuid.UUID) (*models.Resume, error) {
	var r models.Resume
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, object_path, template, status, generated_at, expires_at, created_at, updated_at
		 FROM resumes WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, userID,
	).Scan(&r.ID, &r.UserID, &r.ObjectPath, &r.Template, &r.Status,
		&r.GeneratedAt, &r.ExpiresAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest resume: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) GetResumeJob(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.ResumeJob, error) {
	var j models.ResumeJob
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, resume_id, template, status, error_message, started_at, processed_at, created_at, updated_at
		 FROM resume_jobs WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&j.ID, &j.UserID, &j.ResumeID, &j.Template, &j.Status, &j.ErrorMessage,
		&j.StartedAt, &j.ProcessedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resume job: %w", err)
	}
	return &j, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
