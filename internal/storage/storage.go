package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for artifact store failures.
var (
	ErrUploadFailed = errors.New("artifact upload failed")
	ErrSignFailed   = errors.New("signed url issuance failed")
)

// ArtifactStore is durable binary storage with path-addressed writes and
// time-limited signed read access. A successful Upload followed by SignedURL
// for the same path yields a working URL until the TTL elapses.
type ArtifactStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// ResumeObjectPath builds the storage path for a generated resume. The
// millisecond timestamp keeps paths per-user unique under sequential
// processing; the random suffix keeps them collision-free when several
// workers resolve jobs for the same user in the same millisecond.
func ResumeObjectPath(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("resumes/%s/%d-%s.pdf", userID, now.UnixMilli(), uuid.NewString()[:8])
}
