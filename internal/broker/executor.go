package broker

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/DucLoc1999/Dexonic-Trading/internal/aptos"
	"github.com/DucLoc1999/Dexonic-Trading/internal/bridge"
	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
)

// PlaceOrder submits plan as an exact-input swap and returns a Pending order.
// On any failure it returns a nil order; nothing is ever half-built.
func (b *Broker) PlaceOrder(ctx context.Context, plan OrderPlan, bot *Bot) (*Order, error) {
	if bot == nil || bot.Account == nil {
		return nil, fmt.Errorf("bot account required")
	}
	path, err := plan.Pair.Path(plan.Side)
	if err != nil {
		return nil, err
	}
	amountIn, err := b.registry.ToBaseUnits(path[0], plan.Quantity)
	if err != nil {
		return nil, err
	}

	log := b.log.With(zap.String("pair", plan.Pair.String()), zap.String("side", string(plan.Side)))
	hash, err := b.SwapExactInput(ctx, bot.Account, path, amountIn, nil)
	if err != nil {
		b.metrics.OrdersPlaced.WithLabelValues(string(plan.Side), "error").Inc()
		log.Warn("order failed", zap.String("qty", plan.Quantity.String()), zap.Error(err))
		return nil, err
	}

	order := &Order{
		ID:              newOrderID(),
		Pair:            plan.Pair,
		Side:            plan.Side,
		TxHash:          hash,
		Status:          StatusPending,
		EstimatedAmount: plan.EstimatedAmount,
		CreateTime:      b.now().UTC(),
	}
	b.metrics.OrdersPlaced.WithLabelValues(string(plan.Side), "submitted").Inc()
	log.Info("order placed", zap.String("order_id", order.ID), zap.String("tx", hash.Hex()))
	return order, nil
}

// SwapExactInput spends exactly amountIn of path[0]. A nil minOut applies the
// configured MinAmountOut policy to the quoted output.
func (b *Broker) SwapExactInput(ctx context.Context, signer ledger.Signer, path [2]string, amountIn, minOut *big.Int) (common.Hash, error) {
	q, err := b.Estimate(ctx, path, amountIn, ModeOutGivenIn)
	if err != nil {
		return common.Hash{}, err
	}
	floor := b.minOut(q.Amounts[1])
	if minOut != nil {
		if floor, err = u64Arg(minOut); err != nil {
			return common.Hash{}, err
		}
	}
	return b.swap(ctx, signer, path, q.Path, "swap_exact_input", q.Amounts[0], floor)
}

// SwapExactOutput buys exactly amountOut of path[1]. A nil maxIn allows the
// quoted input plus 10%.
func (b *Broker) SwapExactOutput(ctx context.Context, signer ledger.Signer, path [2]string, amountOut, maxIn *big.Int) (common.Hash, error) {
	q, err := b.Estimate(ctx, path, amountOut, ModeInGivenOut)
	if err != nil {
		return common.Hash{}, err
	}
	var ceiling *uint256.Int
	if maxIn != nil {
		if ceiling, err = u64Arg(maxIn); err != nil {
			return common.Hash{}, err
		}
	} else {
		ceiling = new(uint256.Int).Mul(q.Amounts[0], uint256.NewInt(10_000+maxInBufferBps))
		ceiling.Div(ceiling, uint256.NewInt(10_000))
		if !ceiling.IsUint64() {
			return common.Hash{}, fmt.Errorf("%w: max input %s exceeds u64", ErrInvalidAmount, ceiling.Dec())
		}
	}
	return b.swap(ctx, signer, path, q.Path, "swap_exact_output", q.Amounts[1], ceiling)
}

// swap registers both coins, in order, then submits the router call.
func (b *Broker) swap(ctx context.Context, signer ledger.Signer, symbols, types [2]string, fn string, exact, bound *uint256.Int) (common.Hash, error) {
	if signer == nil {
		return common.Hash{}, fmt.Errorf("%w: signer required", ErrSubmissionFailed)
	}
	for _, sym := range symbols {
		if err := b.EnsureRegistered(ctx, signer, sym); err != nil {
			return common.Hash{}, err
		}
	}

	payload := ledger.EntryFunction{
		Function:      b.routerFunction(fn),
		TypeArguments: []string{types[0], types[1]},
		Arguments:     []any{exact.Dec(), bound.Dec()},
	}
	hash, err := bridge.Do(ctx, b.bridge, func(ctx context.Context) (common.Hash, error) {
		return b.gw.Submit(ctx, signer, payload)
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %s %s->%s: %w", ErrSubmissionFailed, fn, symbols[0], symbols[1], err)
	}
	b.log.Debug("swap submitted",
		zap.String("fn", fn),
		zap.String("tx", hash.Hex()),
		zap.String("exact", exact.Dec()),
		zap.String("bound", bound.Dec()),
	)
	return hash, nil
}

// EnsureRegistered publishes CoinStore<T> for the signer if it is missing and
// waits for the registration to commit.
func (b *Broker) EnsureRegistered(ctx context.Context, signer ledger.Signer, symbol string) error {
	coinType, err := b.registry.Type(symbol)
	if err != nil {
		return err
	}
	addr := signer.Address()

	_, err = bridge.Do(ctx, b.bridge, func(ctx context.Context) (ledger.Resource, error) {
		return b.gw.AccountResource(ctx, addr, aptos.CoinStoreType(coinType))
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("%w: check %s registration: %w", ErrSubmissionFailed, symbol, err)
	}

	b.log.Info("registering coin store", zap.String("symbol", symbol), zap.String("account", addr))
	hash, err := bridge.Do(ctx, b.bridge, func(ctx context.Context) (common.Hash, error) {
		return b.gw.Submit(ctx, signer, ledger.EntryFunction{
			Function:      aptos.RegisterFunction,
			TypeArguments: []string{coinType},
		})
	})
	if err != nil {
		return fmt.Errorf("%w: register %s: %w", ErrSubmissionFailed, symbol, err)
	}
	b.metrics.Registrations.Inc()

	rec, err := bridge.Do(ctx, b.bridge, func(ctx context.Context) (*ledger.Receipt, error) {
		if err := b.gw.WaitForFinality(ctx, hash); err != nil {
			return nil, err
		}
		return b.gw.TransactionByHash(ctx, hash)
	})
	if err != nil {
		return fmt.Errorf("%w: register %s tx %s: %w", ErrSubmissionFailed, symbol, hash.Hex(), err)
	}
	if !rec.Success {
		return fmt.Errorf("%w: register %s tx %s: %w: %s", ErrSubmissionFailed, symbol, hash.Hex(), ErrTransactionReverted, rec.VMStatus)
	}
	return nil
}

func u64Arg(v *big.Int) (*uint256.Int, error) {
	if v.Sign() < 0 || !v.IsUint64() {
		return nil, fmt.Errorf("%w: %s is not a u64", ErrInvalidAmount, v.String())
	}
	return uint256.NewInt(v.Uint64()), nil
}
