//go:build integration

package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tempaccess/internal/session"
	"github.com/daap14/tempaccess/internal/testsupport"
)

func TestRedisStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	store := session.NewRedisStore(testsupport.StartRedis(t), "test:", time.Hour)

	sess, err := store.Create(ctx, 7)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sess.Token, session.TokenPrefix))
	assert.Equal(t, time.Hour, sess.ExpiresAt.Sub(sess.CreatedAt))

	got, err := store.Lookup(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.AccountID)
}

func TestRedisStore_LookupUnknown(t *testing.T) {
	store := session.NewRedisStore(testsupport.StartRedis(t), "test:", time.Hour)

	_, err := store.Lookup(context.Background(), "tas_nope")

	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestRedisStore_Revoke(t *testing.T) {
	ctx := context.Background()
	store := session.NewRedisStore(testsupport.StartRedis(t), "test:", time.Hour)
	sess, err := store.Create(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, sess.Token))

	_, err = store.Lookup(ctx, sess.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.ErrorIs(t, store.Revoke(ctx, sess.Token), session.ErrSessionNotFound)
}

func TestRedisStore_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	store := session.NewRedisStore(testsupport.StartRedis(t), "test:", time.Hour)

	a1, err := store.Create(ctx, 7)
	require.NoError(t, err)
	a2, err := store.Create(ctx, 7)
	require.NoError(t, err)
	other, err := store.Create(ctx, 8)
	require.NoError(t, err)

	n, err := store.InvalidateAll(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, tok := range []string{a1.Token, a2.Token} {
		_, err := store.Lookup(ctx, tok)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	}
	_, err = store.Lookup(ctx, other.Token)
	assert.NoError(t, err)

	n, err = store.InvalidateAll(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisStore_SessionExpires(t *testing.T) {
	ctx := context.Background()
	store := session.NewRedisStore(testsupport.StartRedis(t), "test:", time.Second)
	sess, err := store.Create(ctx, 7)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := store.Lookup(ctx, sess.Token)
		return err != nil
	}, 5*time.Second, 100*time.Millisecond)
}
