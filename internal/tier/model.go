package tier

import "time"

// Tier represents a row in the tiers table: a named privilege level an
// account can hold. Position is the registry's natural order.
type Tier struct {
	ID        string
	Name      string
	Position  int
	CreatedAt time.Time
}

// Names indexes display names by tier id.
func Names(tiers []Tier) map[string]string {
	names := make(map[string]string, len(tiers))
	for _, t := range tiers {
		names[t.ID] = t.Name
	}
	return names
}

// Contains reports whether id names one of the given tiers.
func Contains(tiers []Tier, id string) bool {
	for _, t := range tiers {
		if t.ID == id {
			return true
		}
	}
	return false
}
