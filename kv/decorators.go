package kv

import (
	"context"
	"errors"
	"time"

	"github.com/dreamplay/rewards/pkg/metrics"
)

// WithTimeout bounds every call to the wrapped store by d.
// A non-positive d returns the store unchanged.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{next: s, timeout: d}
}

type timeoutStore struct {
	next    Store
	timeout time.Duration
}

func (t *timeoutStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Get(ctx, key)
}

func (t *timeoutStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Set(ctx, key, value)
}

func (t *timeoutStore) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.List(ctx, prefix)
}

// Instrument records operation counts and latency for the named backend.
func Instrument(s Store, backend string) Store {
	return &instrumentedStore{next: s, backend: backend}
}

type instrumentedStore struct {
	next    Store
	backend string
}

func (i *instrumentedStore) observe(op string, start time.Time, err error) {
	outcome := metrics.Outcome(err)
	if errors.Is(err, ErrNotFound) {
		outcome = "not_found"
	}
	metrics.StoreOpsTotal.WithLabelValues(i.backend, op, outcome).Inc()
	metrics.StoreOpDuration.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
}

func (i *instrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	val, err := i.next.Get(ctx, key)
	i.observe("get", start, err)
	return val, err
}

func (i *instrumentedStore) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := i.next.Set(ctx, key, value)
	i.observe("set", start, err)
	return err
}

func (i *instrumentedStore) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := i.next.List(ctx, prefix)
	i.observe("list", start, err)
	return keys, err
}
