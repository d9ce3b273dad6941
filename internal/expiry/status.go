package expiry

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StatusKind classifies the expiry of an account for display.
type StatusKind string

const (
	StatusPermanent StatusKind = "permanent"
	StatusExpired   StatusKind = "expired"
	StatusTemporary StatusKind = "temporary"
)

// displayLayout renders expiry instants in listings.
const displayLayout = "January 2, 2006 3:04 pm MST"

// Status is a display-only summary of persisted expiry state.
type Status struct {
	Kind           StatusKind `json:"kind"`
	Text           string     `json:"text"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	ExpiresAtText  string     `json:"expiresAtText,omitempty"`
	TargetTier     string     `json:"targetTier,omitempty"`
	TargetTierName string     `json:"targetTierName,omitempty"`
}

var titleCaser = cases.Title(language.Und)

// Status summarizes st at now. tierNames maps tier ids to display names;
// tiers missing from it are shown title-cased.
func (p Policy) Status(st State, tierNames map[string]string, now time.Time) Status {
	if st.ExpiresAt == 0 {
		return Status{Kind: StatusPermanent, Text: "Permanent"}
	}

	target := st.TargetTier
	if target == "" {
		target = p.DefaultTier
	}
	name, ok := tierNames[target]
	if !ok {
		name = titleCaser.String(target)
	}

	at := time.Unix(st.ExpiresAt, 0).In(p.location())
	atText := at.Format(displayLayout)

	s := Status{
		ExpiresAt:      &at,
		ExpiresAtText:  atText,
		TargetTier:     target,
		TargetTierName: name,
	}
	if st.ExpiresAt < now.Unix() {
		s.Kind = StatusExpired
		s.Text = fmt.Sprintf("Expired (pending transition to %s)", name)
		return s
	}
	s.Kind = StatusTemporary
	s.Text = fmt.Sprintf("Temporary, expires %s, transitions to %s", atText, name)
	return s
}
