package middleware

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/tempaccess/internal/api/response"
	"github.com/daap14/tempaccess/internal/auth"
)

// Authorizer answers permission questions about an identity.
type Authorizer interface {
	IsAdmin(identity *auth.Identity) bool
	CanEdit(identity *auth.Identity, targetAccountID int64) bool
}

// RequireAdmin returns middleware that rejects identities without the administrative tier with 403.
func RequireAdmin(authz Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer session token is required", requestID)
				return
			}

			if !authz.IsAdmin(identity) {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Administrator access required", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireCanEdit returns middleware that rejects identities not allowed to edit
// the account named by the {id} URL parameter. Nothing downstream runs on rejection.
func RequireCanEdit(authz Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer session token is required", requestID)
				return
			}

			id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
			if err != nil || id <= 0 {
				response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a positive integer", requestID)
				return
			}

			if !authz.CanEdit(identity, id) {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Not allowed to edit this account", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
