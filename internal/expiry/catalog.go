package expiry

// Duration is one selectable relative expiry.
type Duration struct {
	Seconds int64  `json:"seconds"`
	Label   string `json:"label"`
}

var durations = []Duration{
	{Seconds: 3600, Label: "1 hour"},
	{Seconds: 86400, Label: "1 day"},
	{Seconds: 604800, Label: "1 week"},
	{Seconds: 2592000, Label: "1 month (30 days)"},
}

// Durations returns the allowed relative durations in display order.
func Durations() []Duration {
	out := make([]Duration, len(durations))
	copy(out, durations)
	return out
}

// LookupDuration finds the catalog entry for a number of seconds.
func LookupDuration(seconds int64) (Duration, bool) {
	for _, d := range durations {
		if d.Seconds == seconds {
			return d, true
		}
	}
	return Duration{}, false
}

// LookupLabel finds the catalog entry carrying the given label.
func LookupLabel(label string) (Duration, bool) {
	for _, d := range durations {
		if d.Label == label {
			return d, true
		}
	}
	return Duration{}, false
}
