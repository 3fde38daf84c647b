package rewards

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroWallet is the all-zero address. It means "no wallet" wherever it appears.
const ZeroWallet Wallet = "0x0000000000000000000000000000000000000000"

// Wallet is a canonical, lower-case 0x-prefixed 20-byte address
type Wallet string

// ParseWallet validates s as a 0x-prefixed hex address and canonicalises it.
func ParseWallet(s string) (Wallet, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", ErrInvalidWallet
	}
	if !common.IsHexAddress(s) {
		return "", ErrInvalidWallet
	}
	return Wallet(strings.ToLower(s)), nil
}

// WalletFromAddress canonicalises an on-chain address.
func WalletFromAddress(a common.Address) Wallet {
	return Wallet(strings.ToLower(a.Hex()))
}

// Address returns the wallet as a go-ethereum address
func (w Wallet) Address() common.Address {
	return common.HexToAddress(string(w))
}

// IsZero reports whether w is empty or the zero address
func (w Wallet) IsZero() bool {
	return w == "" || w == ZeroWallet
}

func (w Wallet) String() string {
	return string(w)
}
