// Package tokens maps trading symbols to Move coin types and decimals, and
// converts between human amounts and on-chain base units.
package tokens

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownSymbol = errors.New("unknown token symbol")

type Token struct {
	Symbol   string
	Type     string
	Decimals uint8
}

// Registry is immutable once built and safe for concurrent reads.
type Registry struct {
	bySymbol map[string]Token
	byType   map[string]string
}

func New(list []Token) (*Registry, error) {
	r := &Registry{
		bySymbol: make(map[string]Token, len(list)),
		byType:   make(map[string]string, len(list)),
	}
	for _, t := range list {
		sym := strings.TrimSpace(t.Symbol)
		typ := strings.TrimSpace(t.Type)
		if sym == "" || typ == "" {
			return nil, fmt.Errorf("token entry needs symbol and type: %+v", t)
		}
		if _, dup := r.bySymbol[sym]; dup {
			return nil, fmt.Errorf("duplicate token symbol %q", sym)
		}
		if other, dup := r.byType[typ]; dup {
			return nil, fmt.Errorf("coin type %s mapped to both %s and %s", typ, other, sym)
		}
		r.bySymbol[sym] = Token{Symbol: sym, Type: typ, Decimals: t.Decimals}
		r.byType[typ] = sym
	}
	return r, nil
}

func (r *Registry) Lookup(symbol string) (Token, error) {
	t, ok := r.bySymbol[symbol]
	if !ok {
		return Token{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return t, nil
}

func (r *Registry) Type(symbol string) (string, error) {
	t, err := r.Lookup(symbol)
	if err != nil {
		return "", err
	}
	return t.Type, nil
}

func (r *Registry) Decimals(symbol string) (uint8, error) {
	t, err := r.Lookup(symbol)
	if err != nil {
		return 0, err
	}
	return t.Decimals, nil
}

// SymbolForType reverse-maps a coin type; ok is false for untracked coins.
func (r *Registry) SymbolForType(coinType string) (string, bool) {
	sym, ok := r.byType[coinType]
	return sym, ok
}

func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.bySymbol))
	for s := range r.bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ToBaseUnits scales a human amount by 10^decimals. Digits beyond the token's
// precision are truncated, never rounded up.
func (r *Registry) ToBaseUnits(symbol string, amount decimal.Decimal) (*big.Int, error) {
	t, err := r.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %s %s", amount.String(), symbol)
	}
	return amount.Shift(int32(t.Decimals)).Truncate(0).BigInt(), nil
}

// FromBaseUnits is the exact inverse scaling of ToBaseUnits.
func (r *Registry) FromBaseUnits(symbol string, units *big.Int) (decimal.Decimal, error) {
	t, err := r.Lookup(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if units == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(units, -int32(t.Decimals)), nil
}

// ParseSymbols splits a list such as "APT, CAKE;WETH" on commas, semicolons
// and whitespace. Duplicates are dropped (first occurrence wins).
func ParseSymbols(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\n', '\r', '\t':
			return true
		default:
			return false
		}
	})
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
