package tier

import (
	"context"
	"errors"
)

// ErrTierNotFound is returned when a tier record is not found.
var ErrTierNotFound = errors.New("tier not found")

// ErrDuplicateTier is returned when a tier with the same id already exists.
var ErrDuplicateTier = errors.New("tier already exists")

// ErrTierInUse is returned when attempting to delete a tier still held by accounts.
var ErrTierInUse = errors.New("tier is held by accounts")

// Repository provides operations on the tiers table.
type Repository interface {
	Create(ctx context.Context, t *Tier) error
	GetByID(ctx context.Context, id string) (*Tier, error)
	List(ctx context.Context) ([]Tier, error)
	Delete(ctx context.Context, id string) error
}
