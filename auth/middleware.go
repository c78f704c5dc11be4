package auth

import (
	"context"
	"net/http"

	"github.com/user/exthub-go/apperror"
	"github.com/user/exthub-go/response"
)

// adminRole is the role value required by RequireAdmin. Roles are stored as
// plain strings on the user record; see the users package for the enum.
const adminRole = "ADMIN"

// RoleSource looks up the current role for a user id. RequireAdmin consults
// it instead of trusting the role embedded in the token, because the role may
// have changed since the token was issued. Implementations return
// apperror-typed errors.
type RoleSource interface {
	RoleByID(ctx context.Context, id string) (string, error)
}

// Authenticate returns middleware that requires a valid bearer token. On
// success the verified claims are attached to the request context; on any
// verification failure the request is answered with 401 and the handler is
// never invoked.
func Authenticate(issuer *TokenIssuer, ew *response.ErrorWriter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := ExtractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				ew.WriteError(w, r, err)
				return
			}

			claims, err := issuer.Verify(tokenString)
			if err != nil {
				ew.WriteError(w, r, err)
				return
			}

			ctx := NewContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that gates admin-only routes. It must run
// after Authenticate. The current role is re-fetched from the role source;
// the token's embedded role is deliberately not trusted for this check.
func RequireAdmin(roles RoleSource, ew *response.ErrorWriter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				ew.WriteError(w, r, apperror.NewAuthError("authentication required", nil))
				return
			}

			role, err := roles.RoleByID(r.Context(), claims.UserID)
			if err != nil {
				ew.WriteError(w, r, err)
				return
			}
			if role != adminRole {
				ew.WriteError(w, r, apperror.NewForbiddenError("admin access required", nil))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
