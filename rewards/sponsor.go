package rewards

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// SponsorGraph reads the on-chain referral graph. *chain.Factory satisfies it.
type SponsorGraph interface {
	IsAnchor(ctx context.Context, addr common.Address) (bool, error)
	HasLaunched(ctx context.Context, addr common.Address) (bool, error)
	SponsorOf(ctx context.Context, addr common.Address) (common.Address, error)
}

// ParseSponsor validates an optional sponsor field.
// Empty input and the zero address both yield "" (no sponsor).
func ParseSponsor(s string) (Wallet, error) {
	if s == "" {
		return "", nil
	}
	w, err := ParseWallet(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, ErrInvalidSponsor)
	}
	if w.IsZero() {
		return "", nil
	}
	return w, nil
}

// CheckSponsorEligible succeeds when sponsor is an anchor or has launched.
// Both predicates are queried concurrently.
func CheckSponsorEligible(ctx context.Context, graph SponsorGraph, sponsor Wallet) error {
	var isAnchor, hasLaunched bool
	addr := sponsor.Address()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		isAnchor, err = graph.IsAnchor(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		hasLaunched, err = graph.HasLaunched(gctx, addr)
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrSponsorCheckUnavailable, err)
	}
	if !isAnchor && !hasLaunched {
		return fmt.Errorf("%w: %s", ErrIneligibleSponsor, sponsor)
	}
	return nil
}
