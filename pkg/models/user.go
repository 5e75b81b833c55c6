package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a candidate account. Profile data lives in a separate row so the
// worker can fetch it lazily when a job is claimed.
type User struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Email     string    `db:"email"      json:"email"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
