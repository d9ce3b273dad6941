package account

import "time"

// Account represents a row in the accounts table together with the tiers it holds.
type Account struct {
	ID           int64
	Name         string
	Tiers        []string
	APIKeyPrefix string
	APIKeyHash   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
