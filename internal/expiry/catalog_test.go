package expiry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daap14/tempaccess/internal/expiry"
)

func TestDurations_Order(t *testing.T) {
	got := expiry.Durations()

	assert.Equal(t, []expiry.Duration{
		{Seconds: 3600, Label: "1 hour"},
		{Seconds: 86400, Label: "1 day"},
		{Seconds: 604800, Label: "1 week"},
		{Seconds: 2592000, Label: "1 month (30 days)"},
	}, got)
}

func TestDurations_ReturnsCopy(t *testing.T) {
	got := expiry.Durations()
	got[0].Label = "changed"

	d, ok := expiry.LookupDuration(3600)
	assert.True(t, ok)
	assert.Equal(t, "1 hour", d.Label)
}

func TestLookupDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		label   string
		ok      bool
	}{
		{3600, "1 hour", true},
		{2592000, "1 month (30 days)", true},
		{7200, "", false},
		{0, "", false},
		{-3600, "", false},
	}

	for _, tt := range tests {
		d, ok := expiry.LookupDuration(tt.seconds)
		assert.Equal(t, tt.ok, ok, "seconds=%d", tt.seconds)
		assert.Equal(t, tt.label, d.Label, "seconds=%d", tt.seconds)
	}
}

func TestLookupLabel(t *testing.T) {
	d, ok := expiry.LookupLabel("1 week")
	assert.True(t, ok)
	assert.Equal(t, int64(604800), d.Seconds)

	_, ok = expiry.LookupLabel("1 fortnight")
	assert.False(t, ok)
}
