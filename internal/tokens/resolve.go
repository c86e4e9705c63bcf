package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/DucLoc1999/Dexonic-Trading/internal/aptos"
	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
)

// Spec is a token entry as written in the chain config. Decimals may be
// omitted, in which case Resolve reads them from the chain.
type Spec struct {
	Type     string `yaml:"type"`
	Decimals *uint8 `yaml:"decimals,omitempty"`
}

// ResourceReader is the part of ledger.Gateway needed to look up CoinInfo.
type ResourceReader interface {
	AccountResource(ctx context.Context, address, resourceType string) (ledger.Resource, error)
}

type coinInfo struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Resolve builds a Registry from config entries. Entries without decimals
// are completed from 0x1::coin::CoinInfo<T> published at the coin creator;
// reader may be nil when every entry carries its decimals.
func Resolve(ctx context.Context, reader ResourceReader, specs map[string]Spec) (*Registry, error) {
	symbols := make([]string, 0, len(specs))
	for s := range specs {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	list := make([]Token, 0, len(specs))
	for _, sym := range symbols {
		spec := specs[sym]
		t := Token{Symbol: sym, Type: spec.Type}
		if spec.Decimals != nil {
			t.Decimals = *spec.Decimals
			list = append(list, t)
			continue
		}
		if reader == nil {
			return nil, fmt.Errorf("token %s: decimals not configured and no ledger to resolve them", sym)
		}
		dec, err := fetchDecimals(ctx, reader, spec.Type)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", sym, err)
		}
		t.Decimals = dec
		list = append(list, t)
	}
	return New(list)
}

func fetchDecimals(ctx context.Context, reader ResourceReader, coinType string) (uint8, error) {
	creator, err := aptos.CreatorAddress(coinType)
	if err != nil {
		return 0, err
	}
	res, err := reader.AccountResource(ctx, creator, aptos.CoinInfoType(coinType))
	if err != nil {
		return 0, fmt.Errorf("coin info for %s: %w", coinType, err)
	}
	var info coinInfo
	if err := json.Unmarshal(res.Data, &info); err != nil {
		return 0, fmt.Errorf("decode coin info for %s: %w", coinType, err)
	}
	return info.Decimals, nil
}
