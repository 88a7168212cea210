package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// TokenHeader carries the session token on authenticated requests
const TokenHeader = "X-Token"

// Context keys for middleware
type contextKey string

const (
	UserIDKey contextKey = "user_id"
	TokenKey  contextKey = "token"
)

// UserIDFromContext returns the authenticated user, or uuid.Nil for
// anonymous requests.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func withUser(r *http.Request, userID uuid.UUID, token string) *http.Request {
	ctx := context.WithValue(r.Context(), UserIDKey, userID)
	ctx = context.WithValue(ctx, TokenKey, token)
	return r.WithContext(ctx)
}

// RequireSession rejects requests without a valid session token
func RequireSession(service simplefiles.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			userID, err := service.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, withUser(r, userID, token))
		})
	}
}

// OptionalSession resolves the session token when one is valid and lets the
// request through anonymously otherwise. A failing session store is still
// reported as an error.
func OptionalSession(service simplefiles.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := service.Authenticate(r.Context(), token)
			switch {
			case err == nil:
				r = withUser(r, userID, token)
			case !errors.Is(err, simplefiles.ErrUnauthenticated):
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestSizeLimitMiddleware limits the size of request bodies
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
