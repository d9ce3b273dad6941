package expiry

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/daap14/tempaccess/internal/tier"
)

// Policy holds the site-wide settings every expiry decision depends on.
type Policy struct {
	// AdminTier is never scheduled for downgrade and never offered as a target.
	AdminTier string
	// DefaultTier is the low-privilege fallback target.
	DefaultTier string
	// Location is the site time zone used for specific dates and status text.
	Location *time.Location
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// IsProtected reports whether an account holding the given tiers is exempt
// from expiry. Display, scheduling and execution all consult it.
func (p Policy) IsProtected(tiers []string) bool {
	return slices.Contains(tiers, p.AdminTier)
}

// AllowedTargets returns the tiers an account holding currentTiers may be
// downgraded to, sorted case-insensitively by display name. The default tier
// is offered whenever it exists, and wins ties against tiers with the same name.
func (p Policy) AllowedTargets(catalog []tier.Tier, currentTiers []string) []tier.Tier {
	targets := make([]tier.Tier, 0, len(catalog))
	for _, t := range catalog {
		if t.ID == p.DefaultTier && t.ID != p.AdminTier {
			targets = append(targets, t)
			break
		}
	}
	for _, t := range catalog {
		if t.ID == p.AdminTier || t.ID == p.DefaultTier {
			continue
		}
		if slices.Contains(currentTiers, t.ID) {
			continue
		}
		targets = append(targets, t)
	}

	sort.SliceStable(targets, func(i, j int) bool {
		return strings.ToLower(targets[i].Name) < strings.ToLower(targets[j].Name)
	})
	return targets
}
