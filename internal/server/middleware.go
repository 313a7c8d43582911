package server

import (
	"context"
	"net/http"
	"strings"

	"careops/internal/auth"
)

type ctxKey string

const userContextKey ctxKey = "user"

// requireAuth validates the bearer token and loads the current user into
// the request context. Authorization re-reads the user row, so a
// deactivated account is cut off without waiting for token expiry.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required.")
			return
		}

		user, err := s.Auth.Authorize(r.Context(), strings.TrimSpace(token))
		if err != nil {
			writeServiceError(w, err, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) *auth.User {
	if val, ok := ctx.Value(userContextKey).(*auth.User); ok {
		return val
	}
	return nil
}
