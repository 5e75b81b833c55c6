package models

import (
	"time"

	"github.com/google/uuid"
)

// APIToken is a bearer credential tied to a user account. Only a bcrypt hash is
// stored; the prefix allows cheap lookup before the hash comparison.
type APIToken struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	UserID      uuid.UUID  `db:"user_id"      json:"user_id"`
	Name        string     `db:"name"         json:"name"`
	TokenHash   string     `db:"token_hash"   json:"-"`
	TokenPrefix string     `db:"token_prefix" json:"token_prefix"`
	LastUsedAt  *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	RevokedAt   *time.Time `db:"revoked_at"   json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}
