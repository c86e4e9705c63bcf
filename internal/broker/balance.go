package broker

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/DucLoc1999/Dexonic-Trading/internal/aptos"
	"github.com/DucLoc1999/Dexonic-Trading/internal/bridge"
	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
)

type coinStore struct {
	Coin struct {
		Value string `json:"value"`
	} `json:"coin"`
}

// CheckBalance refreshes bot.Balances from the account's coin stores and
// values every non-currency holding at the current pool price. balance is the
// currency holding; pending is the summed value of the other holdings. A token
// that cannot be priced is logged and left out of pending.
func (b *Broker) CheckBalance(ctx context.Context, bot *Bot) (balance, pending float64, err error) {
	if bot == nil || bot.Account == nil {
		return 0, 0, fmt.Errorf("bot account required")
	}
	if _, err := b.registry.Lookup(bot.Currency); err != nil {
		return 0, 0, err
	}
	addr := bot.Account.Address()

	resources, err := bridge.Do(ctx, b.bridge, func(ctx context.Context) ([]ledger.Resource, error) {
		return b.gw.AccountResources(ctx, addr)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("account resources %s: %w", addr, err)
	}

	tracked := make(map[string]struct{}, len(bot.Tokens)+1)
	for _, s := range bot.Tokens {
		tracked[s] = struct{}{}
	}
	tracked[bot.Currency] = struct{}{}

	if bot.Balances == nil {
		bot.Balances = make(map[string]*TokenBalance, len(tracked))
	}
	held := make(map[string]*big.Int, len(tracked))
	for _, res := range resources {
		coinType, ok := aptos.CoinTypeFromStore(res.Type)
		if !ok {
			continue
		}
		sym, ok := b.registry.SymbolForType(coinType)
		if !ok {
			continue
		}
		if _, ok := tracked[sym]; !ok {
			continue
		}
		var store coinStore
		if err := res.Decode(&store); err != nil {
			return 0, 0, err
		}
		qty, ok := new(big.Int).SetString(store.Coin.Value, 10)
		if !ok {
			return 0, 0, fmt.Errorf("coin store %s: invalid value %q", sym, store.Coin.Value)
		}
		held[sym] = qty
	}

	for sym := range tracked {
		bal := bot.Balances[sym]
		if bal == nil {
			bal = &TokenBalance{}
			bot.Balances[sym] = bal
		}
		bal.Quantity = held[sym]
		if bal.Quantity == nil {
			bal.Quantity = new(big.Int)
		}
		bal.Value = 0
		if sym == bot.Currency {
			continue
		}

		if bal.Quantity.Sign() > 0 {
			value, err := b.valueIn(ctx, sym, bot.Currency, bal.Quantity)
			if err != nil {
				b.log.Warn("valuation failed", zap.String("symbol", sym), zap.Error(err))
			} else {
				bal.Value = value
				pending += value
			}
		}
		b.metrics.BalanceValue.WithLabelValues(sym).Set(bal.Value)
	}

	cur := bot.Balances[bot.Currency]
	human, err := b.registry.FromBaseUnits(bot.Currency, cur.Quantity)
	if err != nil {
		return 0, 0, err
	}
	cur.Value = human.InexactFloat64()
	b.metrics.BalanceValue.WithLabelValues(bot.Currency).Set(cur.Value)
	return cur.Value, pending, nil
}

// valueIn prices qty of symbol as the currency the pool would return for it.
func (b *Broker) valueIn(ctx context.Context, symbol, currency string, qty *big.Int) (float64, error) {
	q, err := b.Estimate(ctx, [2]string{symbol, currency}, qty, ModeOutGivenIn)
	if err != nil {
		return 0, err
	}
	v, err := b.registry.FromBaseUnits(currency, q.Amounts[1].ToBig())
	if err != nil {
		return 0, err
	}
	return v.InexactFloat64(), nil
}
