package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/resumeforge/resumeforge/internal/api/response"
	"github.com/resumeforge/resumeforge/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const tokenPrefixLen = 8

// Auth provides bearer-token authentication middleware.
type Auth struct {
	store store.Store
}

// NewAuth creates a new Auth middleware.
func NewAuth(s store.Store) *Auth {
	return &Auth{store: s}
}

// Authenticate validates the Bearer token, looks up the API token, and sets
// the owning user's ID in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawToken := extractBearerToken(r)
		if rawToken == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawToken) < tokenPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API token format", nil)
			return
		}

		prefix := rawToken[:tokenPrefixLen]

		tokens, err := a.store.GetAPITokenByPrefix(r.Context(), prefix)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate API token", nil)
			return
		}

		// Find matching token by bcrypt comparison
		var matched bool
		for _, token := range tokens {
			if bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(rawToken)) == nil {
				ctx := r.Context()
				ctx = SetUserID(ctx, token.UserID)
				ctx = setTokenPrefix(ctx, prefix)
				r = r.WithContext(ctx)
				matched = true

				// Update last_used_at async
				go a.store.UpdateAPITokenLastUsed(context.Background(), token.ID)
				break
			}
		}

		if !matched {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API token", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
