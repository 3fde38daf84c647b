// Package chain reads the DreamPlay factory contract that owns the sponsor graph.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dreamplay/rewards/pkg/metrics"
)

// FactoryABI lists the read-only factory methods the rewards service calls.
const FactoryABI = `[
	{"type":"function","name":"isAnchor","stateMutability":"view",
	 "inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"hasLaunched","stateMutability":"view",
	 "inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"sponsorOf","stateMutability":"view",
	 "inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"address"}]}
]`

// DefaultFactoryAddress is the deployed DreamPlay factory.
const DefaultFactoryAddress = "0x81A004F712432107869aEA67dC67bB2602C31033"

// DefaultTimeout bounds a single contract call.
const DefaultTimeout = 8 * time.Second

// Sentinel errors for chain operations
var (
	ErrNotConfigured = errors.New("chain reader not configured")
	ErrCallFailed    = errors.New("contract call failed")
	ErrDecodeFailed  = errors.New("contract output decode failed")
)

const (
	methodIsAnchor    = "isAnchor"
	methodHasLaunched = "hasLaunched"
	methodSponsorOf   = "sponsorOf"
)

var factoryABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		panic(fmt.Sprintf("chain: parse factory abi: %v", err))
	}
	return parsed
}()

// ContractCaller is the subset of the Ethereum RPC used by the factory reader.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial initialises an EVM RPC client for the provided endpoint.
func Dial(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: rpc endpoint required", ErrNotConfigured)
	}
	return ethclient.Dial(trimmed)
}

// Option configures a Factory
type Option func(*Factory)

// WithTimeout sets the per-call deadline. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(f *Factory) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// Factory reads sponsor graph predicates from the factory contract at the latest block.
type Factory struct {
	caller  ContractCaller
	address common.Address
	timeout time.Duration
}

// NewFactory creates a reader for the factory deployed at address.
func NewFactory(caller ContractCaller, address common.Address, opts ...Option) *Factory {
	f := &Factory{
		caller:  caller,
		address: address,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsAnchor reports whether addr is a root of the sponsor graph.
func (f *Factory) IsAnchor(ctx context.Context, addr common.Address) (bool, error) {
	return callBool(ctx, f, methodIsAnchor, addr)
}

// HasLaunched reports whether addr has launched through the factory.
func (f *Factory) HasLaunched(ctx context.Context, addr common.Address) (bool, error) {
	return callBool(ctx, f, methodHasLaunched, addr)
}

// SponsorOf returns the sponsor of addr. The zero address means none.
func (f *Factory) SponsorOf(ctx context.Context, addr common.Address) (common.Address, error) {
	out, err := f.call(ctx, methodSponsorOf, addr)
	if err != nil {
		return common.Address{}, err
	}
	sponsor, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, observe(methodSponsorOf, fmt.Errorf("%w: %s returned %T", ErrDecodeFailed, methodSponsorOf, out[0]))
	}
	return sponsor, observe(methodSponsorOf, nil)
}

func callBool(ctx context.Context, f *Factory, method string, addr common.Address) (bool, error) {
	out, err := f.call(ctx, method, addr)
	if err != nil {
		return false, err
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, observe(method, fmt.Errorf("%w: %s returned %T", ErrDecodeFailed, method, out[0]))
	}
	return v, observe(method, nil)
}

// call packs, executes and unpacks a single-output view call.
// Failures are counted here; successes are counted by the caller after type assertion.
func (f *Factory) call(ctx context.Context, method string, args ...any) ([]any, error) {
	if f == nil || f.caller == nil {
		return nil, observe(method, ErrNotConfigured)
	}

	input, err := factoryABI.Pack(method, args...)
	if err != nil {
		return nil, observe(method, fmt.Errorf("%w: pack %s: %w", ErrCallFailed, method, err))
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	raw, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: input}, nil)
	if err != nil {
		return nil, observe(method, fmt.Errorf("%w: %s: %w", ErrCallFailed, method, err))
	}

	out, err := factoryABI.Unpack(method, raw)
	if err != nil {
		return nil, observe(method, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, method, err))
	}
	if len(out) != 1 {
		return nil, observe(method, fmt.Errorf("%w: %s returned %d values", ErrDecodeFailed, method, len(out)))
	}
	return out, nil
}

// observe counts the call outcome. Missing configuration and undecodable
// output do not heal on retry, so they are marked permanent for backoff.
func observe(method string, err error) error {
	metrics.SponsorLookupsTotal.WithLabelValues(method, metrics.Outcome(err)).Inc()
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrDecodeFailed) {
		return backoff.Permanent(err)
	}
	return err
}
