package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserKey   contextKey = "user"
	APIKeyKey contextKey = "api_key"

	// AnonymousUser owns requests when no API keys are configured and no
	// X-User-ID header is sent.
	AnonymousUser = "anonymous"
)

// APIKeyAuth validates API key from Authorization header. validKeys maps an
// API key to the user id it authenticates. An empty map disables the check and
// trusts the X-User-ID header (local development).
func APIKeyAuth(validKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if len(validKeys) == 0 {
				user := strings.TrimSpace(r.Header.Get("X-User-ID"))
				if user == "" {
					user = AnonymousUser
				}
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			// constant-time comparison
			var user string
			for key, id := range validKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					user = id
					break
				}
			}
			if user == "" {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if err := ValidateUserID(user); err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = context.WithValue(ctx, APIKeyKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser stores the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserKey, userID)
}

// GetUserFromContext extracts user id from context
func GetUserFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(UserKey).(string); ok {
		return user
	}
	return ""
}

func isProbe(path string) bool {
	switch path {
	case "/health", "/readyz", "/livez", "/metrics":
		return true
	}
	return false
}
