package rewards_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamplay/rewards/kv"
	"github.com/dreamplay/rewards/rewards"
)

func TestTopToday(t *testing.T) {
	t.Parallel()

	t.Run("it ranks today's totals descending with ties by address", func(t *testing.T) {
		t.Parallel()

		// Arrange
		clk := newFakeClock()
		store := newStubStore()
		ledger := rewards.NewLedger(store, serviceOptions(t, clk)...)
		for w, pts := range map[rewards.Wallet]float64{alice: 20, bob: 70, carol: 20} {
			_, err := ledger.Award(t.Context(), w, pts)
			require.NoError(t, err)
		}
		view := rewards.NewLeaderboardView(store, serviceOptions(t, clk)...)

		// Act
		board, err := view.TopToday(t.Context(), 0)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "2025-03-10", board.Date)
		assert.Equal(t, []rewards.WalletPoints{
			{Wallet: bob, Points: 70},
			{Wallet: alice, Points: 20},
			{Wallet: carol, Points: 20},
		}, board.Entries)
		assert.Equal(t, rewards.ListingStats{Listed: 3, ReadOK: 3}, board.Diag)
	})

	t.Run("it leaves out wallets without points today", func(t *testing.T) {
		t.Parallel()

		// Arrange
		clk := newFakeClock()
		store := newStubStore()
		ledger := rewards.NewLedger(store, serviceOptions(t, clk)...)
		_, err := ledger.Award(t.Context(), alice, 50)
		require.NoError(t, err)
		clk.Advance(24 * time.Hour)
		_, err = ledger.Award(t.Context(), bob, 5)
		require.NoError(t, err)
		view := rewards.NewLeaderboardView(store, serviceOptions(t, clk)...)

		// Act
		board, err := view.TopToday(t.Context(), 10)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []rewards.WalletPoints{{Wallet: bob, Points: 5}}, board.Entries)
		assert.Equal(t, rewards.ListingStats{Listed: 2, ReadOK: 2}, board.Diag)
	})

	t.Run("it truncates to the limit", func(t *testing.T) {
		t.Parallel()

		// Arrange
		clk := newFakeClock()
		store := newStubStore()
		ledger := rewards.NewLedger(store, serviceOptions(t, clk)...)
		for i := 1; i <= 5; i++ {
			_, err := ledger.Award(t.Context(), rewards.Wallet(fmt.Sprintf("0x%040x", i)), float64(i))
			require.NoError(t, err)
		}
		view := rewards.NewLeaderboardView(store, serviceOptions(t, clk)...)

		// Act
		board, err := view.TopToday(t.Context(), 2)

		// Assert
		require.NoError(t, err)
		require.Len(t, board.Entries, 2)
		assert.Equal(t, 5.0, board.Entries[0].Points)
		assert.Equal(t, 4.0, board.Entries[1].Points)
	})

	t.Run("it counts unreadable claim records", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := newStubStore()
		require.NoError(t, store.MemStore.Set(t.Context(), rewards.ClaimsPrefix+string(alice)+".json", []byte(`nope`)))
		require.NoError(t, store.MemStore.Set(t.Context(), rewards.ClaimsPrefix+"not-a-wallet.json", []byte(`{}`)))
		view := rewards.NewLeaderboardView(store, serviceOptions(t, newFakeClock())...)

		// Act
		board, err := view.TopToday(t.Context(), 0)

		// Assert
		require.NoError(t, err)
		assert.Empty(t, board.Entries)
		assert.Equal(t, rewards.ListingStats{Listed: 2, ReadFail: 2}, board.Diag)
	})

	t.Run("it reports an unavailable listing instead of an empty board", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := newStubStore()
		store.listErr = kv.ErrListUnsupported
		view := rewards.NewLeaderboardView(store, serviceOptions(t, newFakeClock())...)

		// Act
		_, err := view.TopToday(t.Context(), 0)

		// Assert
		assert.ErrorIs(t, err, rewards.ErrListingUnavailable)
		assert.ErrorIs(t, err, kv.ErrListUnsupported)
	})

	t.Run("it never writes", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := newStubStore()
		require.NoError(t, store.MemStore.Set(t.Context(), rewards.ClaimsPrefix+string(alice)+".json", []byte(`{"lastClaimAt":0,"dayTotals":{"2025-03-10":3}}`)))
		view := rewards.NewLeaderboardView(store, serviceOptions(t, newFakeClock())...)

		// Act
		_, err := view.TopToday(t.Context(), 0)

		// Assert
		require.NoError(t, err)
		assert.Zero(t, store.writes())
	})
}

func TestClampLeaderboardLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, rewards.ClampLeaderboardLimit(0))
	assert.Equal(t, 100, rewards.ClampLeaderboardLimit(-3))
	assert.Equal(t, 1, rewards.ClampLeaderboardLimit(1))
	assert.Equal(t, 100, rewards.ClampLeaderboardLimit(500))
}
