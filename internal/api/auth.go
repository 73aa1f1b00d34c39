package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/auth"
	"github.com/elumia/wellness-api/internal/identity"
)

const userKey contextKey = "user"

// Authenticate verifies the bearer token and stores the caller's
// identity in the request context.
func Authenticate(verifier auth.Verifier, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
				return
			}

			id, err := verifier.Verify(r.Context(), strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
			if err != nil {
				log.Debug().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("token rejected")
				if errors.Is(err, auth.ErrMissingToken) {
					writeError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, token failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireUser resolves the authenticated identity to a registered user.
// Must run after Authenticate.
func RequireUser(users UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
				return
			}

			user, err := users.GetByFirebaseUID(r.Context(), id.UID)
			if err != nil {
				if errors.Is(err, identity.ErrUserNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, user not found")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFrom(ctx context.Context) *identity.User {
	u, _ := ctx.Value(userKey).(*identity.User)
	return u
}
