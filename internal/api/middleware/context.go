package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey      contextKey = "user_id"
	tokenPrefixKey contextKey = "token_prefix"
)

func SetUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func GetUserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}

func setTokenPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, tokenPrefixKey, prefix)
}

func getTokenPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(tokenPrefixKey).(string)
	return prefix, ok
}

// ExportedTokenPrefixKey exposes the token prefix context key for tests.
func ExportedTokenPrefixKey() any { return tokenPrefixKey }
