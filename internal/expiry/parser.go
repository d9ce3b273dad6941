package expiry

import (
	"regexp"
	"strings"
	"time"

	"github.com/daap14/tempaccess/internal/tier"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const endOfDayLayout = "2006-01-02 15:04:05"

// Parse normalizes an edit request into a Spec. It returns nil whenever the
// request does not describe a future expiry: type none, an unknown duration,
// a malformed or impossible date, or a date whose end has already passed.
// A requested target tier outside AllowedTargets falls back to DefaultTier.
func (p Policy) Parse(accountID int64, req Request, catalog []tier.Tier, currentTiers []string, now time.Time) *Spec {
	target := p.DefaultTier
	if tier.Contains(p.AllowedTargets(catalog, currentTiers), req.TargetTier) {
		target = req.TargetTier
	}

	var expiresAt int64
	var label string

	switch req.Type {
	case TypeRelative:
		if req.RelativeDuration <= 0 {
			return nil
		}
		d, ok := LookupDuration(req.RelativeDuration)
		if !ok {
			return nil
		}
		expiresAt = now.Unix() + d.Seconds
		label = d.Label
	case TypeSpecific:
		date := strings.TrimSpace(req.SpecificDate)
		ts, ok := p.endOfDay(date)
		if !ok || ts <= now.Unix() {
			return nil
		}
		expiresAt = ts
		label = date
	default:
		return nil
	}

	return &Spec{
		AccountID:    accountID,
		ExpiresAt:    expiresAt,
		TargetTier:   target,
		DisplayLabel: label,
	}
}

// endOfDay returns the unix time of 23:59:59 on date in the site time zone.
func (p Policy) endOfDay(date string) (int64, bool) {
	if !datePattern.MatchString(date) {
		return 0, false
	}
	t, err := time.ParseInLocation(endOfDayLayout, date+" 23:59:59", p.location())
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

// IsDateLabel reports whether a display label was produced by a specific-date expiry.
func IsDateLabel(label string) bool {
	return datePattern.MatchString(label)
}
