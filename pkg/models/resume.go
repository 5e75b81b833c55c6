package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ResumeStatusPending = "PENDING"
	ResumeStatusReady   = "READY"
)

// Resume is the metadata record for a generated resume. The PDF itself lives in
// object storage; ObjectPath is empty until the owning job completes. A resume is
// created PENDING at enqueue time so clients can poll for completion.
type Resume struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	UserID      uuid.UUID  `db:"user_id"      json:"user_id"`
	ObjectPath  string     `db:"object_path"  json:"object_path"`
	Template    string     `db:"template"     json:"template"`
	Status      string     `db:"status"       json:"status"`
	GeneratedAt *time.Time `db:"generated_at" json:"generated_at,omitempty"`
	ExpiresAt   *time.Time `db:"expires_at"   json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}
