package auth

import "slices"

// Identity is stored in the request context after authentication.
type Identity struct {
	AccountID    int64
	AccountName  string
	Tiers        []string
	SessionToken string
}

// HasTier reports whether the authenticated account holds the given tier.
func (i *Identity) HasTier(id string) bool {
	return slices.Contains(i.Tiers, id)
}
