package account

import (
	"context"
	"errors"
)

// ErrAccountNotFound is returned when an account record is not found.
var ErrAccountNotFound = errors.New("account not found")

// ErrDuplicateName is returned when an account with the same name already exists.
var ErrDuplicateName = errors.New("account name already exists")

// ErrUnknownTier is returned when assigning a tier that is not in the registry.
var ErrUnknownTier = errors.New("unknown tier")

// Repository provides operations on accounts and the tiers they hold.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	FindByPrefix(ctx context.Context, prefix string) ([]Account, error)
	List(ctx context.Context) ([]Account, error)
	// SetTier replaces every tier the account holds with the single given tier.
	SetTier(ctx context.Context, id int64, tier string) error
	SetTiers(ctx context.Context, id int64, tiers []string) error
	CountAll(ctx context.Context) (int, error)
}
