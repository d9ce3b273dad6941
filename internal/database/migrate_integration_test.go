//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tempaccess/internal/testsupport"
)

func TestMigrate_IsIdempotent(t *testing.T) {
	db := testsupport.StartPostgres(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(), "re-running migrations is a no-op")
	require.NoError(t, db.Ping(ctx))

	var tables int
	err := db.Pool().QueryRow(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_name IN ('tiers', 'accounts', 'account_tiers', 'account_attributes')`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 4, tables)

	var seeded int
	require.NoError(t, db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM tiers`).Scan(&seeded))
	assert.Equal(t, 5, seeded)
}
