package models

import (
	"time"

	"github.com/google/uuid"
)

// ExperienceEntry is one item in a profile's experience history, stored as JSONB.
type ExperienceEntry struct {
	Role    string `json:"role"`
	Company string `json:"company"`
}

// Profile holds the resume source data for a user.
type Profile struct {
	ID         uuid.UUID         `db:"id"         json:"id"`
	UserID     uuid.UUID         `db:"user_id"    json:"user_id"`
	Headline   string            `db:"headline"   json:"headline"`
	Skills     []string          `db:"skills"     json:"skills"`
	Experience []ExperienceEntry `db:"experience" json:"experience"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}
