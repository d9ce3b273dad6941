package expiry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tempaccess/internal/expiry"
)

func TestEngine_RelativeExpiryEndToEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2029, 6, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(now, author(7))

	req := expiry.Request{Type: expiry.TypeRelative, RelativeDuration: 3600, TargetTier: "editor"}
	spec := testPolicy.Parse(7, req, testCatalog, []string{"author"}, now)
	require.NotNil(t, spec)
	assert.Equal(t, now.Unix()+3600, spec.ExpiresAt)
	assert.Equal(t, "editor", spec.TargetTier)

	require.NoError(t, h.scheduler().Apply(ctx, 7, spec, []string{"author"}))
	pending := h.jobs.pendingFor(7)
	require.Len(t, pending, 1)

	h.now = now.Add(3600*time.Second + 5*time.Second)
	outcome := h.executor().Execute(ctx, pending[0].Payload)

	assert.Equal(t, expiry.OutcomeCommitted, outcome)
	assert.Equal(t, []string{"editor"}, h.accounts.tiersOf(7))
	assert.Equal(t, []int64{7}, h.sessions.invalidated)
	assert.Equal(t, 0, h.attrs.count(7))
	assert.Equal(t, []tierChange{{AccountID: 7, Tier: "editor"}}, h.notifier.changes)

	st, err := h.scheduler().Current(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, expiry.StatusPermanent, testPolicy.Status(st, nil, h.now).Kind)
}

func TestEngine_PrematureDeliveryThenOnTime(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2029, 6, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(now, author(7))

	spec := testPolicy.Parse(7, expiry.Request{Type: expiry.TypeRelative, RelativeDuration: 3600, TargetTier: "contributor"},
		testCatalog, []string{"author"}, now)
	require.NoError(t, h.scheduler().Apply(ctx, 7, spec, []string{"author"}))
	ev := h.jobs.pendingFor(7)[0]

	h.now = now.Add(30 * time.Minute)
	assert.Equal(t, expiry.OutcomeStale, h.executor().Execute(ctx, ev.Payload))
	assert.Equal(t, []string{"author"}, h.accounts.tiersOf(7))

	h.now = now.Add(time.Hour)
	assert.Equal(t, expiry.OutcomeCommitted, h.executor().Execute(ctx, ev.Payload))
	assert.Equal(t, []string{"contributor"}, h.accounts.tiersOf(7))

	assert.Equal(t, expiry.OutcomeStale, h.executor().Execute(ctx, ev.Payload), "duplicate delivery must be a no-op")
	assert.Len(t, h.notifier.changes, 1)
}
