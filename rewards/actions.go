package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dreamplay/rewards/kv"
	"github.com/dreamplay/rewards/pkg/clock"
)

// ActionEvent is the append-only record of one logged action
type ActionEvent struct {
	Ts      time.Time `json:"ts"`
	Wallet  Wallet    `json:"wallet"`
	Action  string    `json:"action"`
	Points  float64   `json:"points"`
	Awarded float64   `json:"awarded"`
	Note    string    `json:"note"`
	Sponsor Wallet    `json:"sponsor,omitempty"`
}

// LogActionRequest carries raw, unvalidated input
type LogActionRequest struct {
	Wallet  string
	Action  string
	Points  float64
	Sponsor string
	Note    string
}

// LogActionResult is the outcome of a logged action
type LogActionResult struct {
	Awarded  float64
	DayTotal float64
	Capped   bool
	EventKey string
}

// ActionLogger validates actions, awards them through the ledger and records
// the event plus the actor index entry.
type ActionLogger struct {
	store  kv.Store
	ledger *Ledger
	graph  SponsorGraph
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	lastMs int64
}

// NewActionLogger creates an action logger sharing ledger's wallet locks.
func NewActionLogger(store kv.Store, ledger *Ledger, graph SponsorGraph, opts ...Option) *ActionLogger {
	o := newOptions(opts)
	return &ActionLogger{
		store:  store,
		ledger: ledger,
		graph:  graph,
		clock:  o.clock,
		logger: o.logger,
	}
}

// LogAction performs three writes: claim state, event, actor index.
// They are not atomic. When the award fails nothing is written; when a later
// write fails the award stays booked and ErrStorageUnavailable is returned.
func (a *ActionLogger) LogAction(ctx context.Context, req LogActionRequest) (LogActionResult, error) {
	wallet, sponsor, action, err := validateAction(req)
	if err != nil {
		return LogActionResult{}, err
	}

	if !sponsor.IsZero() {
		if err := CheckSponsorEligible(ctx, a.graph, sponsor); err != nil {
			return LogActionResult{}, err
		}
	}

	// Hold the wallet for the award and the index append so concurrent
	// actions of one wallet never drop index entries.
	unlock := a.ledger.locks.lock(wallet)
	defer unlock()

	award, err := a.ledger.awardLocked(ctx, wallet, req.Points)
	if err != nil {
		return LogActionResult{}, err
	}

	now := a.clock.Now()
	key := eventKey(a.nextMs(now), wallet)
	event := ActionEvent{
		Ts:      now.UTC(),
		Wallet:  wallet,
		Action:  action,
		Points:  req.Points,
		Awarded: award.Awarded,
		Note:    strings.TrimSpace(req.Note),
		Sponsor: sponsor,
	}

	if err := a.writeEvent(ctx, key, event); err != nil {
		a.logger.ErrorContext(ctx, "event write failed after award",
			slog.String("wallet", string(wallet)),
			slog.Float64("awarded", award.Awarded),
			slog.Any("error", err),
		)
		return LogActionResult{}, err
	}
	if err := a.appendIndex(ctx, wallet, key); err != nil {
		a.logger.ErrorContext(ctx, "actor index append failed after event write",
			slog.String("wallet", string(wallet)),
			slog.String("event_key", key),
			slog.Any("error", err),
		)
		return LogActionResult{}, err
	}

	return LogActionResult{
		Awarded:  award.Awarded,
		DayTotal: award.DayTotal,
		Capped:   award.Capped,
		EventKey: key,
	}, nil
}

func validateAction(req LogActionRequest) (Wallet, Wallet, string, error) {
	wallet, err := ParseWallet(req.Wallet)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %w", ErrValidation, err)
	}

	sponsor, err := ParseSponsor(strings.TrimSpace(req.Sponsor))
	if err != nil {
		return "", "", "", err
	}
	if sponsor == wallet {
		return "", "", "", fmt.Errorf("%w: %w", ErrValidation, ErrSelfSponsor)
	}

	action := strings.TrimSpace(req.Action)
	if action == "" {
		return "", "", "", fmt.Errorf("%w: %w", ErrValidation, ErrInvalidAction)
	}

	if err := validatePoints(req.Points); err != nil {
		return "", "", "", err
	}
	return wallet, sponsor, action, nil
}

// nextMs returns a strictly increasing millisecond stamp so event keys never collide.
func (a *ActionLogger) nextMs(now time.Time) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= a.lastMs {
		ms = a.lastMs + 1
	}
	a.lastMs = ms
	return ms
}

func (a *ActionLogger) writeEvent(ctx context.Context, key string, event ActionEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encode event: %w", ErrStorageUnavailable, err)
	}
	if err := a.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: write event: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (a *ActionLogger) appendIndex(ctx context.Context, w Wallet, key string) error {
	keys, err := loadActorIndex(ctx, a.store, w)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(append(keys, key))
	if err != nil {
		return fmt.Errorf("%w: encode actor index: %w", ErrStorageUnavailable, err)
	}
	if err := a.store.Set(ctx, actorIndexKey(w), raw); err != nil {
		return fmt.Errorf("%w: write actor index: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// loadActorIndex returns the wallet's event keys, oldest first. A missing index is empty.
func loadActorIndex(ctx context.Context, store kv.Reader, w Wallet) ([]string, error) {
	raw, err := store.Get(ctx, actorIndexKey(w))
	if errors.Is(err, kv.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read actor index: %w", ErrStorageUnavailable, err)
	}

	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("%w: decode actor index: %w", ErrStorageUnavailable, err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}
