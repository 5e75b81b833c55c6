package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// JobStatusKey is scoped by owner so a cached status can only ever be read
// back for the user the job belongs to.
func JobStatusKey(userID, jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s:%s", userID, jobID)
}

func RateLimitKey(tokenPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", tokenPrefix)
}

func AvailabilityKey(userID uuid.UUID) string {
	return fmt.Sprintf("availability:%s", userID)
}
