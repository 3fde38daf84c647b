// Package rewards implements the points ledger, action log, sponsor commission
// and leaderboard on top of a kv.Store and the on-chain sponsor graph.
package rewards

import (
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dreamplay/rewards/pkg/clock"
)

// Lookup retry bounds for the read path
const (
	lookupMaxRetries      = 2
	lookupInitialInterval = 100 * time.Millisecond
	lookupMaxElapsed      = 2 * time.Second
)

type options struct {
	clock   clock.Clock
	logger  *slog.Logger
	backOff func() backoff.BackOff
}

// Option configures the rewards services
type Option func(*options)

// WithClock sets the time source. Defaults to the system clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger for diagnostics. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLookupBackOff sets the retry policy of sponsor lookups.
// newBackOff is called once per lookup.
func WithLookupBackOff(newBackOff func() backoff.BackOff) Option {
	return func(o *options) {
		if newBackOff != nil {
			o.backOff = newBackOff
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		clock:   clock.SystemClock{},
		logger:  slog.Default(),
		backOff: defaultLookupBackOff,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func defaultLookupBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = lookupInitialInterval
	b.MaxElapsedTime = lookupMaxElapsed
	return backoff.WithMaxRetries(b, lookupMaxRetries)
}
