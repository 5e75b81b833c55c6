package render

import (
	"errors"
	"time"

	"github.com/resumeforge/resumeforge/pkg/models"
)

// ErrRenderFailed wraps any failure while composing the document.
var ErrRenderFailed = errors.New("render failed")

// Input is the snapshot of user data a render works from. Given identical
// input the output bytes are identical except for the generated-at display
// line, which the caller controls via GeneratedAt.
type Input struct {
	User               *models.User
	Profile            *models.Profile
	RecentApplications []*models.Application
	Template           string
	GeneratedAt        time.Time
}

// Renderer turns a snapshot of user data into a finished binary document.
type Renderer interface {
	Render(input Input) ([]byte, error)
}
