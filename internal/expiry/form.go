package expiry

import (
	"time"

	"github.com/daap14/tempaccess/internal/tier"
)

// ProtectedNotice is shown instead of expiry choices for protected accounts.
const ProtectedNotice = "Expiry settings do not apply to administrators."

// Form is the state an editor needs to re-edit an account's expiry.
type Form struct {
	Protected        bool       `json:"protected"`
	Notice           string     `json:"notice,omitempty"`
	Type             Type       `json:"expiryType"`
	RelativeDuration int64      `json:"relativeDuration,omitempty"`
	SpecificDate     string     `json:"specificDate,omitempty"`
	TargetTier       string     `json:"targetTier"`
	Durations        []Duration `json:"durations"`
	Targets          []Target   `json:"targets"`
}

// Target is a selectable downgrade tier.
type Target struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Form reconstructs the previous choice of an editor from persisted state.
// An expiry that is no longer in the future shows as none.
func (p Policy) Form(st State, catalog []tier.Tier, currentTiers []string, now time.Time) Form {
	if p.IsProtected(currentTiers) {
		return Form{
			Protected: true,
			Notice:    ProtectedNotice,
			Type:      TypeNone,
			Durations: []Duration{},
			Targets:   []Target{},
		}
	}

	f := Form{
		Type:       TypeNone,
		TargetTier: st.TargetTier,
		Durations:  Durations(),
		Targets:    targetsOf(p.AllowedTargets(catalog, currentTiers)),
	}
	if f.TargetTier == "" {
		f.TargetTier = p.DefaultTier
	}

	if st.ExpiresAt > now.Unix() {
		if IsDateLabel(st.DisplayLabel) {
			f.Type = TypeSpecific
			f.SpecificDate = st.DisplayLabel
		} else {
			f.Type = TypeRelative
			if d, ok := LookupLabel(st.DisplayLabel); ok {
				f.RelativeDuration = d.Seconds
			}
		}
	}
	return f
}

func targetsOf(tiers []tier.Tier) []Target {
	out := make([]Target, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, Target{ID: t.ID, Name: t.Name})
	}
	return out
}
