package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/session"
)

// ErrInvalidKey is returned when the provided API key does not match any account.
var ErrInvalidKey = errors.New("invalid API key")

// ErrInvalidSession is returned when a bearer token does not name a live session.
var ErrInvalidSession = errors.New("invalid or expired session")

// KeyPrefix starts every API key.
const KeyPrefix = "tak_"

// Service provides authentication operations.
type Service struct {
	accounts   AccountRepository
	sessions   session.Store
	bcryptCost int
	adminTier  string
}

// NewService creates a new auth Service.
func NewService(accounts AccountRepository, sessions session.Store, bcryptCost int, adminTier string) *Service {
	return &Service{
		accounts:   accounts,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		adminTier:  adminTier,
	}
}

// GenerateKey creates a new API key. Returns the raw key, its prefix (first 8 chars),
// and the bcrypt hash. The raw key is: 32 random bytes -> base64url -> prepend "tak_".
func (s *Service) GenerateKey() (rawKey, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	rawKey = KeyPrefix + base64.RawURLEncoding.EncodeToString(b)
	prefix = rawKey[:8]

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(rawKey), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing key: %w", err)
	}
	hash = string(hashBytes)

	return rawKey, prefix, hash, nil
}

// Login exchanges a raw API key for a new session.
func (s *Service) Login(ctx context.Context, rawKey string) (*session.Session, error) {
	a, err := s.resolveKey(ctx, rawKey)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	slog.Info("auth: session created", "accountId", a.ID)
	return sess, nil
}

// Authenticate resolves a bearer token to an Identity carrying the account's current tiers.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	sess, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	a, err := s.accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("fetching account for identity: %w", err)
	}

	return &Identity{
		AccountID:    a.ID,
		AccountName:  a.Name,
		Tiers:        a.Tiers,
		SessionToken: token,
	}, nil
}

// Logout revokes the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return ErrInvalidSession
		}
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// IsAdmin reports whether identity holds the administrative tier.
func (s *Service) IsAdmin(identity *Identity) bool {
	return identity != nil && identity.HasTier(s.adminTier)
}

// CanEdit reports whether identity may change the expiry of the target account.
// Only administrators may edit accounts, including their own.
func (s *Service) CanEdit(identity *Identity, targetAccountID int64) bool {
	return targetAccountID > 0 && s.IsAdmin(identity)
}

// BootstrapAdmin creates the initial administrator if the accounts table is empty.
// Returns the raw API key (only displayed once). If accounts already exist, returns empty string.
func (s *Service) BootstrapAdmin(ctx context.Context) (string, error) {
	count, err := s.accounts.CountAll(ctx)
	if err != nil {
		return "", fmt.Errorf("counting accounts: %w", err)
	}

	if count > 0 {
		return "", nil
	}

	rawKey, prefix, hash, err := s.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("generating administrator key: %w", err)
	}

	a := &account.Account{
		Name:         "admin",
		Tiers:        []string{s.adminTier},
		APIKeyPrefix: prefix,
		APIKeyHash:   hash,
	}

	if err := s.accounts.Create(ctx, a); err != nil {
		return "", fmt.Errorf("creating administrator: %w", err)
	}

	slog.Info("Administrator API key created", "key", rawKey)

	return rawKey, nil
}

// resolveKey extracts the prefix, looks up candidates, and bcrypt-compares each one.
func (s *Service) resolveKey(ctx context.Context, rawKey string) (*account.Account, error) {
	if len(rawKey) < 8 {
		return nil, ErrInvalidKey
	}

	candidates, err := s.accounts.FindByPrefix(ctx, rawKey[:8])
	if err != nil {
		return nil, fmt.Errorf("finding accounts by prefix: %w", err)
	}

	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].APIKeyHash), []byte(rawKey)) == nil {
			return &candidates[i], nil
		}
	}

	return nil, ErrInvalidKey
}
