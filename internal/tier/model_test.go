package tier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daap14/tempaccess/internal/tier"
)

func TestNames(t *testing.T) {
	names := tier.Names([]tier.Tier{{ID: "editor", Name: "Editor"}, {ID: "subscriber", Name: "Subscriber"}})

	assert.Equal(t, map[string]string{"editor": "Editor", "subscriber": "Subscriber"}, names)
	assert.Empty(t, tier.Names(nil))
}

func TestContains(t *testing.T) {
	tiers := []tier.Tier{{ID: "editor"}, {ID: "author"}}

	assert.True(t, tier.Contains(tiers, "author"))
	assert.False(t, tier.Contains(tiers, "subscriber"))
	assert.False(t, tier.Contains(nil, "author"))
}
