package auth

import (
	"context"

	"github.com/daap14/tempaccess/internal/account"
)

// AccountRepository is the part of the account store authentication needs.
type AccountRepository interface {
	Create(ctx context.Context, a *account.Account) error
	GetByID(ctx context.Context, id int64) (*account.Account, error)
	FindByPrefix(ctx context.Context, prefix string) ([]account.Account, error)
	CountAll(ctx context.Context) (int, error)
}
