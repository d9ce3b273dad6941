package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/daap14/tempaccess/internal/api/middleware"
	"github.com/daap14/tempaccess/internal/api/response"
	"github.com/daap14/tempaccess/internal/auth"
	"github.com/daap14/tempaccess/internal/session"
)

// SessionService issues and revokes bearer sessions.
type SessionService interface {
	Login(ctx context.Context, rawKey string) (*session.Session, error)
	Logout(ctx context.Context, token string) error
}

// SessionHandler handles login and logout.
type SessionHandler struct {
	svc SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type sessionResponse struct {
	Token     string `json:"token"`
	AccountID int64  `json:"accountId"`
	ExpiresAt string `json:"expiresAt"`
}

// Create handles POST /sessions. The API key is read from the X-API-Key header.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	rawKey := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if rawKey == "" {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-API-Key header is required", requestID)
		return
	}

	sess, err := h.svc.Login(r.Context(), rawKey)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidKey) {
			response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key", requestID)
			return
		}
		response.Internal(w, "Failed to create session", err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, sessionResponse{
		Token:     sess.Token,
		AccountID: sess.AccountID,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	}, requestID)
}

// Delete handles DELETE /sessions/current.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer session token is required", requestID)
		return
	}

	if err := h.svc.Logout(r.Context(), identity.SessionToken); err != nil && !errors.Is(err, auth.ErrInvalidSession) {
		response.Internal(w, "Failed to revoke session", err, requestID)
		return
	}

	response.NoContent(w)
}
