package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dreamplay/rewards/kv"
	"github.com/dreamplay/rewards/pkg/clock"
)

// Leaderboard size bounds
const (
	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 100
)

// ListingStats counts the outcome of a listing-based aggregation
type ListingStats struct {
	Listed   int
	ReadOK   int
	ReadFail int
}

// Leaderboard is today's ranking by day total
type Leaderboard struct {
	Date    string
	Entries []WalletPoints
	Diag    ListingStats
}

// LeaderboardView ranks wallets by today's claim totals. It never writes.
type LeaderboardView struct {
	store  kv.Store
	clock  clock.Clock
	logger *slog.Logger
}

// NewLeaderboardView creates a view over the claim state in store.
func NewLeaderboardView(store kv.Store, opts ...Option) *LeaderboardView {
	o := newOptions(opts)
	return &LeaderboardView{store: store, clock: o.clock, logger: o.logger}
}

// ClampLeaderboardLimit maps limit into 1..MaxLeaderboardLimit; non-positive means the default.
func ClampLeaderboardLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	return min(limit, MaxLeaderboardLimit)
}

// TopToday returns up to limit wallets with a positive total today.
// A store that cannot enumerate claims yields ErrListingUnavailable, never an empty board.
func (v *LeaderboardView) TopToday(ctx context.Context, limit int) (Leaderboard, error) {
	limit = ClampLeaderboardLimit(limit)
	today := clock.DayKey(v.clock.Now())

	keys, err := v.store.List(ctx, ClaimsPrefix)
	if err != nil {
		return Leaderboard{}, fmt.Errorf("%w: %w", ErrListingUnavailable, err)
	}

	board := Leaderboard{Date: today, Entries: []WalletPoints{}}
	board.Diag.Listed = len(keys)

	for _, key := range keys {
		total, wallet, ok, err := v.readTotal(ctx, key, today)
		if err != nil {
			board.Diag.ReadFail++
			v.logger.WarnContext(ctx, "leaderboard entry unreadable", slog.String("key", key), slog.Any("error", err))
			continue
		}
		if !ok {
			continue
		}
		board.Diag.ReadOK++
		if total > 0 {
			board.Entries = append(board.Entries, WalletPoints{Wallet: wallet, Points: total})
		}
	}

	sortByPointsDesc(board.Entries)
	if len(board.Entries) > limit {
		board.Entries = board.Entries[:limit]
	}
	return board, nil
}

// readTotal returns ok=false when the key vanished between listing and reading.
func (v *LeaderboardView) readTotal(ctx context.Context, key, today string) (float64, Wallet, bool, error) {
	wallet, err := walletFromClaimKey(key)
	if err != nil {
		return 0, "", false, err
	}

	raw, err := v.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}

	var state ClaimState
	if err := json.Unmarshal(raw, &state); err != nil {
		return 0, "", false, err
	}
	return state.DayTotals[today], wallet, true, nil
}
