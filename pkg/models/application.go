package models

import (
	"time"

	"github.com/google/uuid"
)

// Application records a user applying to a job posting. The posting's title and
// company are denormalized here; the renderer only needs them for display.
type Application struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	CandidateID uuid.UUID `db:"candidate_id" json:"candidate_id"`
	JobTitle    string    `db:"job_title"    json:"job_title"`
	Company     string    `db:"company"      json:"company"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}
