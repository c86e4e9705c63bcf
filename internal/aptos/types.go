package aptos

import (
	"fmt"
	"strings"
)

const (
	coinStorePrefix = "0x1::coin::CoinStore<"
	coinInfoPrefix  = "0x1::coin::CoinInfo<"

	// RegisterFunction initializes a CoinStore<T> for the signer.
	RegisterFunction = "0x1::managed_coin::register"
)

// CoinStoreType is the account resource holding a balance of coinType.
func CoinStoreType(coinType string) string {
	return coinStorePrefix + coinType + ">"
}

// CoinInfoType is the resource published at the coin creator account that
// carries name, symbol and decimals.
func CoinInfoType(coinType string) string {
	return coinInfoPrefix + coinType + ">"
}

// CoinTypeFromStore extracts T from 0x1::coin::CoinStore<T>.
func CoinTypeFromStore(resourceType string) (string, bool) {
	if !strings.HasPrefix(resourceType, coinStorePrefix) || !strings.HasSuffix(resourceType, ">") {
		return "", false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(resourceType, coinStorePrefix), ">")
	if inner == "" {
		return "", false
	}
	return inner, true
}

// CreatorAddress returns the account that published a Move struct type, i.e.
// the part before the first "::".
func CreatorAddress(structType string) (string, error) {
	addr, _, ok := strings.Cut(strings.TrimSpace(structType), "::")
	if !ok || addr == "" {
		return "", fmt.Errorf("invalid struct type %q", structType)
	}
	if !IsAddress(addr) {
		return "", fmt.Errorf("invalid address in struct type %q", structType)
	}
	return addr, nil
}
