package session

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a token does not name a live session.
var ErrSessionNotFound = errors.New("session not found")

// Session is an authenticated login of one account.
type Session struct {
	Token     string    `json:"token"`
	AccountID int64     `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store issues and revokes sessions.
type Store interface {
	Create(ctx context.Context, accountID int64) (*Session, error)
	Lookup(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
	// InvalidateAll revokes every session of an account and reports how many were live.
	InvalidateAll(ctx context.Context, accountID int64) (int, error)
}
