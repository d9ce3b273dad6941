//go:build integration

package tier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/testsupport"
	"github.com/daap14/tempaccess/internal/tier"
)

func TestPostgresRepository(t *testing.T) {
	db := testsupport.StartPostgres(t)
	repo := tier.NewPostgresRepository(db.Pool())
	ctx := context.Background()

	t.Run("seeded registry in position order", func(t *testing.T) {
		tiers, err := repo.List(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(tiers))
		for _, tr := range tiers {
			ids = append(ids, tr.ID)
		}
		assert.Equal(t, []string{"administrator", "editor", "author", "contributor", "subscriber"}, ids)
	})

	t.Run("create appends when position is zero", func(t *testing.T) {
		tr := &tier.Tier{ID: "shop_manager", Name: "Shop Manager"}
		require.NoError(t, repo.Create(ctx, tr))
		assert.Equal(t, 6, tr.Position)
		assert.False(t, tr.CreatedAt.IsZero())

		got, err := repo.GetByID(ctx, "shop_manager")
		require.NoError(t, err)
		assert.Equal(t, "Shop Manager", got.Name)
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := repo.Create(ctx, &tier.Tier{ID: "editor", Name: "Editor again"})
		assert.ErrorIs(t, err, tier.ErrDuplicateTier)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "ghost")
		assert.ErrorIs(t, err, tier.ErrTierNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "ghost"), tier.ErrTierNotFound)
	})

	t.Run("held tier cannot be deleted", func(t *testing.T) {
		accounts := account.NewPostgresRepository(db.Pool())
		require.NoError(t, accounts.Create(ctx, &account.Account{
			Name: "holder", Tiers: []string{"shop_manager"}, APIKeyPrefix: "tak_aaaa", APIKeyHash: "x",
		}))

		assert.ErrorIs(t, repo.Delete(ctx, "shop_manager"), tier.ErrTierInUse)
	})

	t.Run("unused tier is deleted", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "contributor"))
		_, err := repo.GetByID(ctx, "contributor")
		assert.ErrorIs(t, err, tier.ErrTierNotFound)
	})
}
