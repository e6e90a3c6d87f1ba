package providers

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkernet/probed/internal/testutil"
)

func TestStore_AddListRemove(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		store := NewStore(db)
		ctx := context.Background()

		addrs, err := store.ListActiveProviders(ctx)
		require.NoError(t, err)
		assert.Empty(t, addrs)

		require.NoError(t, store.Add(ctx, "f01001"))
		require.NoError(t, store.Add(ctx, "f01000"))
		// Re-adding is idempotent.
		require.NoError(t, store.Add(ctx, "f01000"))

		addrs, err = store.ListActiveProviders(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"f01000", "f01001"}, addrs)

		removed, err := store.Remove(ctx, "f01001")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.Remove(ctx, "f01001")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestStore_ReplaceAll(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		store := NewStore(db)
		ctx := context.Background()

		for _, addr := range []string{"f01000", "f01001", "f01002"} {
			require.NoError(t, store.Add(ctx, addr))
		}

		require.NoError(t, store.ReplaceAll(ctx, []string{"f01001", "f01003"}))

		addrs, err := store.ListActiveProviders(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"f01001", "f01003"}, addrs)

		// Empty set means the source is unknown: keep the previous catalog.
		require.NoError(t, store.ReplaceAll(ctx, nil))
		addrs, err = store.ListActiveProviders(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"f01001", "f01003"}, addrs)
	})
}
