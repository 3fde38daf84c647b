package rewards

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dreamplay/rewards/kv"
)

// LevelPercents are the commission percentages of sponsor levels 1..8.
var LevelPercents = [...]int64{21, 13, 8, 5, 3, 2, 1, 1}

// MaxLevels is the depth of the sponsor walk
const MaxLevels = len(LevelPercents)

var hundred = decimal.NewFromInt(100)

// WalletPoints pairs a wallet with a points total
type WalletPoints struct {
	Wallet Wallet
	Points float64
}

// LevelPoints is the commission credited at one sponsor level
type LevelPoints struct {
	Level  int
	Pct    int64
	Points float64
}

// ReadStats counts per-item read outcomes of an aggregation
type ReadStats struct {
	ReadOK   int
	ReadFail int
}

// Board is the commission view of one wallet's actions.
// It is derived on every request and never persisted.
type Board struct {
	Base       Wallet
	Totals     []WalletPoints // per upline, descending by points
	Levels     []LevelPoints  // always MaxLevels entries
	EventCount int
	Diag       ReadStats
}

// CommissionEngine distributes awarded points up the sponsor chain.
type CommissionEngine struct {
	store   kv.Reader
	graph   SponsorGraph
	logger  *slog.Logger
	backOff func() backoff.BackOff
}

// NewCommissionEngine creates an engine reading events from store.
func NewCommissionEngine(store kv.Reader, graph SponsorGraph, opts ...Option) *CommissionEngine {
	o := newOptions(opts)
	return &CommissionEngine{
		store:   store,
		graph:   graph,
		logger:  o.logger,
		backOff: o.backOff,
	}
}

// ComputeBoard walks up to MaxLevels sponsors for every event of base.
//
// Level credit is round2(awarded * pct / 100), half away from zero. A failed
// sponsor lookup ends that event's walk, keeps the credit already given and
// counts a read failure; other events are still processed.
func (c *CommissionEngine) ComputeBoard(ctx context.Context, base Wallet) (Board, error) {
	keys, err := loadActorIndex(ctx, c.store, base)
	if err != nil {
		return Board{}, err
	}

	perLevel := make([]decimal.Decimal, MaxLevels)
	perWallet := make(map[Wallet]decimal.Decimal)
	memo := newLookupMemo()
	var diag ReadStats

	for _, key := range keys {
		event, found, err := c.loadEvent(ctx, key)
		if err != nil {
			diag.ReadFail++
			c.logger.WarnContext(ctx, "commission event unreadable", slog.String("key", key), slog.Any("error", err))
			continue
		}
		if !found {
			continue
		}

		if event.Awarded <= 0 || event.Sponsor.IsZero() {
			diag.ReadOK++
			continue
		}

		if c.walk(ctx, event, memo, perLevel, perWallet) {
			diag.ReadOK++
		} else {
			diag.ReadFail++
		}
	}

	return Board{
		Base:       base,
		Totals:     sortTotals(perWallet),
		Levels:     levelsOf(perLevel),
		EventCount: len(keys),
		Diag:       diag,
	}, nil
}

// walk credits one event and reports whether every needed lookup succeeded.
func (c *CommissionEngine) walk(ctx context.Context, event ActionEvent, memo *lookupMemo, perLevel []decimal.Decimal, perWallet map[Wallet]decimal.Decimal) bool {
	awarded := decimal.NewFromFloat(event.Awarded)
	upline := event.Sponsor

	for level := range MaxLevels {
		if upline.IsZero() {
			return true
		}

		pts := awarded.Mul(decimal.NewFromInt(LevelPercents[level])).Div(hundred).Round(2)
		if pts.IsPositive() {
			perLevel[level] = perLevel[level].Add(pts)
			perWallet[upline] = perWallet[upline].Add(pts)
		}

		if level == MaxLevels-1 {
			break
		}

		next, err := c.sponsorOf(ctx, upline, memo)
		if err != nil {
			c.logger.WarnContext(ctx, "sponsor lookup failed",
				slog.String("wallet", string(upline)),
				slog.Int("level", level+1),
				slog.Any("error", err),
			)
			return false
		}
		upline = next
	}
	return true
}

// lookupMemo holds the outcome of every sponsor lookup made during one board
// computation, failures included.
type lookupMemo struct {
	sponsors map[Wallet]Wallet
	failed   map[Wallet]error
}

func newLookupMemo() *lookupMemo {
	return &lookupMemo{
		sponsors: make(map[Wallet]Wallet),
		failed:   make(map[Wallet]error),
	}
}

// sponsorOf resolves w at most once per board: a wallet whose lookup exhausted
// its retries fails fast for every later event.
func (c *CommissionEngine) sponsorOf(ctx context.Context, w Wallet, memo *lookupMemo) (Wallet, error) {
	if s, ok := memo.sponsors[w]; ok {
		return s, nil
	}
	if err, ok := memo.failed[w]; ok {
		return "", err
	}

	addr, err := backoff.RetryWithData(func() (common.Address, error) {
		addr, err := c.graph.SponsorOf(ctx, w.Address())
		if err != nil && ctx.Err() != nil {
			return common.Address{}, backoff.Permanent(err)
		}
		return addr, err
	}, backoff.WithContext(c.backOff(), ctx))
	if err != nil {
		memo.failed[w] = err
		return "", err
	}

	s := WalletFromAddress(addr)
	memo.sponsors[w] = s
	return s, nil
}

// loadEvent returns found=false for a key that no longer resolves.
func (c *CommissionEngine) loadEvent(ctx context.Context, key string) (ActionEvent, bool, error) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return ActionEvent{}, false, nil
	}
	if err != nil {
		return ActionEvent{}, false, err
	}

	var stored struct {
		Awarded float64 `json:"awarded"`
		Sponsor string  `json:"sponsor"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return ActionEvent{}, false, err
	}

	event := ActionEvent{Awarded: stored.Awarded}
	// An unparsable sponsor counts as no sponsor.
	if s, err := ParseWallet(stored.Sponsor); err == nil {
		event.Sponsor = s
	}
	return event, true, nil
}

func sortTotals(perWallet map[Wallet]decimal.Decimal) []WalletPoints {
	totals := make([]WalletPoints, 0, len(perWallet))
	for w, pts := range perWallet {
		if w.IsZero() {
			continue
		}
		totals = append(totals, WalletPoints{Wallet: w, Points: pts.InexactFloat64()})
	}
	sortByPointsDesc(totals)
	return totals
}

func levelsOf(perLevel []decimal.Decimal) []LevelPoints {
	levels := make([]LevelPoints, MaxLevels)
	for i, pts := range perLevel {
		levels[i] = LevelPoints{Level: i + 1, Pct: LevelPercents[i], Points: pts.InexactFloat64()}
	}
	return levels
}

// sortByPointsDesc orders by points descending, ties by wallet ascending.
func sortByPointsDesc(entries []WalletPoints) {
	slices.SortFunc(entries, func(a, b WalletPoints) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.Wallet, b.Wallet)
	})
}
