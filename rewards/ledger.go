package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dreamplay/rewards/kv"
	"github.com/dreamplay/rewards/pkg/clock"
	"github.com/dreamplay/rewards/pkg/metrics"
)

// Ledger policy
const (
	DailyCap         = 100.0
	DailyClaimPoints = 100.0
	ClaimCooldown    = 24 * time.Hour
)

// Award sources and claim outcomes used as metric labels
const (
	sourceAction     = "action"
	sourceDailyClaim = "daily_claim"

	claimAwarded  = "awarded"
	claimCapped   = "capped"
	claimCooldown = "cooldown"
)

// ClaimState is the persisted per-wallet ledger record
type ClaimState struct {
	LastClaimAt int64              `json:"lastClaimAt"` // unix ms, 0 if never claimed
	DayTotals   map[string]float64 `json:"dayTotals"`   // UTC date -> points, each <= DailyCap
}

// Status is today's standing of a wallet
type Status struct {
	Wallet   Wallet
	Date     string
	DayTotal float64
	Capped   bool
}

// AwardResult is the outcome of a capped award
type AwardResult struct {
	Awarded  float64
	DayTotal float64
	Capped   bool
}

// DailyClaimResult is the outcome of a daily claim
type DailyClaimResult struct {
	AlreadyClaimed bool
	NextEligibleMs int64 // remaining cooldown, 0 when the claim went through
	PointsAwarded  float64
	DayTotal       float64
	Capped         bool
}

// Ledger owns ClaimState: the rolling claim stamp and per-day totals.
//
// Load, compute and persist run under a per-wallet lock, so one process never
// credits past the cap. Several processes sharing one store can still race.
type Ledger struct {
	store  kv.Store
	clock  clock.Clock
	logger *slog.Logger
	locks  *walletLocks
}

// NewLedger creates a ledger on store.
func NewLedger(store kv.Store, opts ...Option) *Ledger {
	o := newOptions(opts)
	return &Ledger{
		store:  store,
		clock:  o.clock,
		logger: o.logger,
		locks:  newWalletLocks(),
	}
}

// Status reports today's total without writing anything.
func (l *Ledger) Status(ctx context.Context, w Wallet) (Status, error) {
	today := clock.DayKey(l.clock.Now())

	state, err := l.load(ctx, w)
	if err != nil {
		return Status{}, err
	}

	total := state.DayTotals[today]
	return Status{Wallet: w, Date: today, DayTotal: total, Capped: total >= DailyCap}, nil
}

// Award credits up to requested points within today's remaining capacity.
// Nothing is written when the cap leaves no room.
func (l *Ledger) Award(ctx context.Context, w Wallet, requested float64) (AwardResult, error) {
	if err := validatePoints(requested); err != nil {
		return AwardResult{}, err
	}

	unlock := l.locks.lock(w)
	defer unlock()

	return l.awardLocked(ctx, w, requested)
}

// awardLocked expects the caller to hold the wallet lock.
func (l *Ledger) awardLocked(ctx context.Context, w Wallet, requested float64) (AwardResult, error) {
	today := clock.DayKey(l.clock.Now())

	state, err := l.load(ctx, w)
	if err != nil {
		return AwardResult{}, err
	}

	result := applyAward(&state, today, requested)
	if result.Awarded > 0 {
		if err := l.save(ctx, w, state); err != nil {
			return AwardResult{}, err
		}
		metrics.PointsAwardedTotal.WithLabelValues(sourceAction).Add(result.Awarded)
	}
	return result, nil
}

// ClaimDaily awards DailyClaimPoints once per rolling ClaimCooldown.
// A successful claim always stamps lastClaimAt, also when the cap absorbs everything.
func (l *Ledger) ClaimDaily(ctx context.Context, w Wallet) (DailyClaimResult, error) {
	unlock := l.locks.lock(w)
	defer unlock()

	now := l.clock.Now()
	today := clock.DayKey(now)

	state, err := l.load(ctx, w)
	if err != nil {
		return DailyClaimResult{}, err
	}

	if state.LastClaimAt > 0 {
		elapsed := max(now.UnixMilli()-state.LastClaimAt, 0)
		if window := ClaimCooldown.Milliseconds(); elapsed < window {
			metrics.ClaimsTotal.WithLabelValues(claimCooldown).Inc()
			total := state.DayTotals[today]
			return DailyClaimResult{
				AlreadyClaimed: true,
				NextEligibleMs: window - elapsed,
				DayTotal:       total,
				Capped:         total >= DailyCap,
			}, nil
		}
	}

	award := applyAward(&state, today, DailyClaimPoints)
	state.LastClaimAt = now.UnixMilli()
	if err := l.save(ctx, w, state); err != nil {
		return DailyClaimResult{}, err
	}

	if award.Awarded > 0 {
		metrics.PointsAwardedTotal.WithLabelValues(sourceDailyClaim).Add(award.Awarded)
		metrics.ClaimsTotal.WithLabelValues(claimAwarded).Inc()
	} else {
		metrics.ClaimsTotal.WithLabelValues(claimCapped).Inc()
	}

	return DailyClaimResult{
		PointsAwarded: award.Awarded,
		DayTotal:      award.DayTotal,
		Capped:        award.Capped,
	}, nil
}

// applyAward mutates state in place. add = min(requested, max(0, cap - today)).
func applyAward(state *ClaimState, today string, requested float64) AwardResult {
	current := state.DayTotals[today]
	add := math.Min(requested, math.Max(0, DailyCap-current))

	total := current
	if add > 0 {
		total = current + add
		state.DayTotals[today] = total
	}
	return AwardResult{Awarded: add, DayTotal: total, Capped: total >= DailyCap}
}

func (l *Ledger) load(ctx context.Context, w Wallet) (ClaimState, error) {
	state := ClaimState{DayTotals: map[string]float64{}}

	raw, err := l.store.Get(ctx, claimKey(w))
	if errors.Is(err, kv.ErrNotFound) {
		return state, nil
	}
	if err != nil {
		return ClaimState{}, fmt.Errorf("%w: load claim state: %w", ErrStorageUnavailable, err)
	}

	// A record that does not decode is never overwritten.
	if err := json.Unmarshal(raw, &state); err != nil {
		l.logger.ErrorContext(ctx, "undecodable claim state", slog.String("wallet", string(w)), slog.Any("error", err))
		return ClaimState{}, fmt.Errorf("%w: decode claim state: %w", ErrStorageUnavailable, err)
	}
	if state.DayTotals == nil {
		state.DayTotals = map[string]float64{}
	}
	return state, nil
}

func (l *Ledger) save(ctx context.Context, w Wallet, state ClaimState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: encode claim state: %w", ErrStorageUnavailable, err)
	}
	if err := l.store.Set(ctx, claimKey(w), raw); err != nil {
		return fmt.Errorf("%w: save claim state: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func validatePoints(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrInvalidPoints)
	}
	return nil
}
