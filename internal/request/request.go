// Package request carries per-request values: the authenticated user and
// the derived client address.
package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/wisdomhub/wisdom-hub/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContextKey exposes the user key for tests that need to inject
// non-user values.
func UserContextKey() contextKey { return userContextKey }

// WithUser attaches the authenticated user to ctx
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil when the request
// was not authenticated (or the context holds the wrong type).
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}

// ClientIP derives the caller's address. X-Forwarded-For wins (first hop),
// then X-Real-IP, then the socket's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
