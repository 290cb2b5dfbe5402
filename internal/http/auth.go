package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const ownerIDKey contextKey = "ownerID"

// OwnerIDFromContext returns the authenticated owner id set by RequireAuth.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerIDKey).(string)
	return id, ok && id != ""
}

// RequireAuth validates the bearer token on every request and stores the
// token subject in the request context as the owner id. Requests without
// a valid token never reach the handlers.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	keyFunc := func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				respondJSON(w, http.StatusUnauthorized, errorPayload{Error: "missing bearer token"})
				return
			}

			token, err := jwt.Parse(raw, keyFunc,
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
				jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				respondJSON(w, http.StatusUnauthorized, errorPayload{Error: "invalid token"})
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				respondJSON(w, http.StatusUnauthorized, errorPayload{Error: "token has no subject"})
				return
			}

			ctx := context.WithValue(r.Context(), ownerIDKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
