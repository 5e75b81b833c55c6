package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued     = "QUEUED"
	JobStatusProcessing = "PROCESSING"
	JobStatusDone       = "DONE"
	JobStatusFailed     = "FAILED"
)

// ResumeJob is a unit of deferred rendering work. Status moves strictly
// QUEUED -> PROCESSING -> DONE or FAILED; nothing leaves a terminal state.
// The worker claims PROCESSING exclusively and resolves each job exactly once.
type ResumeJob struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	UserID       uuid.UUID  `db:"user_id"       json:"user_id"`
	ResumeID     uuid.UUID  `db:"resume_id"     json:"resume_id"`
	Template     string     `db:"template"      json:"template"`
	Status       string     `db:"status"        json:"status"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	ProcessedAt  *time.Time `db:"processed_at"  json:"processed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
