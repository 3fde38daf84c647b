//go:build acceptance

package pgxstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamplay/rewards/kv"
	"github.com/dreamplay/rewards/kv/pgxstore"
	"github.com/dreamplay/rewards/migrator/migratortest"
)

const migrationsDir = "../../migrator/migrations"

// TestStoreAcceptance exercises the kv_entries table on a real PostgreSQL
func TestStoreAcceptance(t *testing.T) {
	t.Parallel()

	t.Run("it returns ErrNotFound for a missing key", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store, _ := pgxstore.New(migratortest.CreateTestDatabase(t, migrationsDir))

		// Act
		_, err := store.Get(t.Context(), "claims/0xabc.json")

		// Assert
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("it releases the pool through its closer", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pool := migratortest.CreateTestDatabase(t, migrationsDir)
		store, closeStore := pgxstore.New(pool)

		// Act
		closeStore()

		// Assert
		_, err := store.Get(t.Context(), "claims/0xabc.json")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("it upserts JSON values", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store, _ := pgxstore.New(migratortest.CreateTestDatabase(t, migrationsDir))
		key := "claims/0xabc.json"
		require.NoError(t, store.Set(t.Context(), key, []byte(`{"lastClaimAt":1,"dayTotals":{}}`)))

		// Act
		require.NoError(t, store.Set(t.Context(), key, []byte(`{"lastClaimAt":2,"dayTotals":{"2025-01-01":30}}`)))
		val, err := store.Get(t.Context(), key)

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `{"lastClaimAt":2,"dayTotals":{"2025-01-01":30}}`, string(val))
	})

	t.Run("it lists keys by prefix in ascending order", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store, _ := pgxstore.New(migratortest.CreateTestDatabase(t, migrationsDir))
		for _, k := range []string{"claims/0xbb.json", "actions/log/1-0xaa", "claims/0xaa.json"} {
			require.NoError(t, store.Set(t.Context(), k, []byte(`{}`)))
		}

		// Act
		keys, err := store.List(t.Context(), "claims/")
		none, noneErr := store.List(t.Context(), "nothing/")

		// Assert
		require.NoError(t, err)
		require.NoError(t, noneErr)
		assert.Equal(t, []string{"claims/0xaa.json", "claims/0xbb.json"}, keys)
		assert.Equal(t, []string{}, none)
	})
}
