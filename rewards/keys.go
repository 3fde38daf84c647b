package rewards

import (
	"fmt"
	"strings"
)

// Store key layout
const (
	ClaimsPrefix     = "claims/"
	ActionLogPrefix  = "actions/log/"
	ActorIndexPrefix = "actions/by-actor/"

	jsonSuffix = ".json"
)

func claimKey(w Wallet) string {
	return ClaimsPrefix + string(w) + jsonSuffix
}

// walletFromClaimKey extracts the wallet part of claims/<wallet>.json.
func walletFromClaimKey(key string) (Wallet, error) {
	raw := strings.TrimSuffix(strings.TrimPrefix(key, ClaimsPrefix), jsonSuffix)
	return ParseWallet(raw)
}

func actorIndexKey(w Wallet) string {
	return ActorIndexPrefix + string(w) + jsonSuffix
}

// eventKey sorts lexicographically by time: 13 digits cover unix ms until year 2286.
func eventKey(ms int64, w Wallet) string {
	return fmt.Sprintf("%s%013d-%s", ActionLogPrefix, ms, w)
}
