package rewards_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"github.com/dreamplay/rewards/kv"
	"github.com/dreamplay/rewards/pkg/logger"
	"github.com/dreamplay/rewards/rewards"
)

var (
	errStoreDown = errors.New("store down")
	errRPCDown   = errors.New("rpc down")

	// 2025-03-10 12:00 UTC
	testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
)

const (
	alice = rewards.Wallet("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = rewards.Wallet("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	carol = rewards.Wallet("0xcccccccccccccccccccccccccccccccccccccccc")
	s1    = rewards.Wallet("0x1111111111111111111111111111111111111111")
	s2    = rewards.Wallet("0x2222222222222222222222222222222222222222")
	s3    = rewards.Wallet("0x3333333333333333333333333333333333333333")
)

// stubStore wraps a MemStore, counts calls and injects failures by key prefix.
type stubStore struct {
	*kv.MemStore

	gets atomic.Int64
	sets atomic.Int64

	mu       sync.Mutex
	failGet  map[string]error
	failSet  map[string]error
	listErr  error
	setCalls []string
}

func newStubStore() *stubStore {
	return &stubStore{
		MemStore: kv.NewMemStore(),
		failGet:  map[string]error{},
		failSet:  map[string]error{},
	}
}

func (s *stubStore) failGetsUnder(prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet[prefix] = err
}

func (s *stubStore) failSetsUnder(prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet[prefix] = err
}

func (s *stubStore) match(rules map[string]error, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for prefix, err := range rules {
		if strings.HasPrefix(key, prefix) {
			return err
		}
	}
	return nil
}

func (s *stubStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets.Add(1)
	if err := s.match(s.failGet, key); err != nil {
		return nil, err
	}
	return s.MemStore.Get(ctx, key)
}

func (s *stubStore) Set(ctx context.Context, key string, value []byte) error {
	s.sets.Add(1)
	if err := s.match(s.failSet, key); err != nil {
		return err
	}
	s.mu.Lock()
	s.setCalls = append(s.setCalls, key)
	s.mu.Unlock()
	return s.MemStore.Set(ctx, key, value)
}

func (s *stubStore) List(ctx context.Context, prefix string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemStore.List(ctx, prefix)
}

func (s *stubStore) writes() int64 {
	return s.sets.Load()
}

// fakeGraph is an in-memory sponsor graph with per-address failures.
type fakeGraph struct {
	mu       sync.Mutex
	anchors  map[common.Address]bool
	launched map[common.Address]bool
	sponsors map[common.Address]common.Address
	// failures[addr] > 0 fails that many SponsorOf calls; -1 fails forever
	failures  map[common.Address]int
	lookupErr error // returned by failing lookups instead of errRPCDown
	predErr   error
	lookups   map[common.Address]int
	predCalls atomic.Int64
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		anchors:  map[common.Address]bool{},
		launched: map[common.Address]bool{},
		sponsors: map[common.Address]common.Address{},
		failures: map[common.Address]int{},
		lookups:  map[common.Address]int{},
	}
}

// chain links w -> sponsor for each consecutive pair.
func (g *fakeGraph) chain(ws ...rewards.Wallet) *fakeGraph {
	for i := 0; i+1 < len(ws); i++ {
		g.sponsors[ws[i].Address()] = ws[i+1].Address()
	}
	return g
}

func (g *fakeGraph) IsAnchor(_ context.Context, addr common.Address) (bool, error) {
	g.predCalls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.predErr != nil {
		return false, g.predErr
	}
	return g.anchors[addr], nil
}

func (g *fakeGraph) HasLaunched(_ context.Context, addr common.Address) (bool, error) {
	g.predCalls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.predErr != nil {
		return false, g.predErr
	}
	return g.launched[addr], nil
}

func (g *fakeGraph) SponsorOf(_ context.Context, addr common.Address) (common.Address, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lookups[addr]++
	failErr := errRPCDown
	if g.lookupErr != nil {
		failErr = g.lookupErr
	}
	switch n := g.failures[addr]; {
	case n < 0:
		return common.Address{}, failErr
	case n > 0:
		g.failures[addr] = n - 1
		return common.Address{}, failErr
	}
	return g.sponsors[addr], nil
}

func (g *fakeGraph) lookupCount(w rewards.Wallet) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lookups[w.Address()]
}

func newFakeClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(testNow)
}

// serviceOptions wires the fake clock, a silent logger and an immediate retry policy.
func serviceOptions(t *testing.T, clk clockwork.Clock) []rewards.Option {
	t.Helper()
	return []rewards.Option{
		rewards.WithClock(clk),
		rewards.WithLogger(logger.Discard()),
		rewards.WithLookupBackOff(func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
		}),
	}
}
