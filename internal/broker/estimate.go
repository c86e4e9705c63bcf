package broker

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/DucLoc1999/Dexonic-Trading/internal/amm"
	"github.com/DucLoc1999/Dexonic-Trading/internal/bridge"
)

type Mode int

const (
	// ModeOutGivenIn quotes the output of spending an exact input.
	ModeOutGivenIn Mode = iota
	// ModeInGivenOut quotes the input needed for an exact output.
	ModeInGivenOut
)

func (m Mode) String() string {
	switch m {
	case ModeOutGivenIn:
		return "out_given_in"
	case ModeInGivenOut:
		return "in_given_out"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Quote is the result of Estimate. Path holds the coin types of [in, out] and
// Amounts the matching base-unit amounts.
type Quote struct {
	Path     [2]string
	Amounts  [2]*uint256.Int
	Reserves Reserves
}

// Estimate quotes a swap along path (symbols, [in, out]). amountUnits is the
// known side: the input for ModeOutGivenIn, the output for ModeInGivenOut.
func (b *Broker) Estimate(ctx context.Context, path [2]string, amountUnits *big.Int, mode Mode) (Quote, error) {
	q, err := b.estimate(ctx, path, amountUnits, mode)
	if err != nil {
		b.metrics.EstimateFailures.WithLabelValues(estimateReason(err)).Inc()
	}
	return q, err
}

func (b *Broker) estimate(ctx context.Context, path [2]string, amountUnits *big.Int, mode Mode) (Quote, error) {
	amount, err := toUint256(amountUnits)
	if err != nil {
		return Quote{}, err
	}
	if mode != ModeOutGivenIn && mode != ModeInGivenOut {
		return Quote{}, fmt.Errorf("unknown estimate mode %s", mode)
	}
	typeIn, err := b.registry.Type(path[0])
	if err != nil {
		return Quote{}, err
	}
	typeOut, err := b.registry.Type(path[1])
	if err != nil {
		return Quote{}, err
	}

	res, err := bridge.Do(ctx, b.bridge, func(ctx context.Context) (Reserves, error) {
		return b.reserves(ctx, typeIn, typeOut)
	})
	if err != nil {
		return Quote{}, fmt.Errorf("reserves %s/%s: %w", path[0], path[1], err)
	}

	q := Quote{Path: [2]string{typeIn, typeOut}, Reserves: res}
	switch mode {
	case ModeOutGivenIn:
		out, err := amm.AmountOut(amount, res.In, res.Out, b.fee)
		if err != nil {
			return Quote{}, err
		}
		q.Amounts = [2]*uint256.Int{amount, out}
	case ModeInGivenOut:
		in, err := amm.AmountIn(amount, res.In, res.Out, b.fee)
		if err != nil {
			return Quote{}, err
		}
		q.Amounts = [2]*uint256.Int{in, amount}
	}

	b.log.Debug("estimate",
		zap.String("in", path[0]),
		zap.String("out", path[1]),
		zap.Stringer("mode", mode),
		zap.String("amount_in", q.Amounts[0].Dec()),
		zap.String("amount_out", q.Amounts[1].Dec()),
		zap.String("price_impact", amm.PriceImpact(q.Amounts[0], q.Amounts[1], res.In, res.Out).StringFixed(6)),
	)
	return q, nil
}

// toUint256 rejects amounts below one base unit and amounts that do not fit
// a Move u64 argument.
func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil || v.Sign() < 1 {
		return nil, fmt.Errorf("%w: %v must be at least 1 base unit", ErrInvalidAmount, v)
	}
	if !v.IsUint64() {
		return nil, fmt.Errorf("%w: %s exceeds u64", ErrInvalidAmount, v.String())
	}
	return uint256.NewInt(v.Uint64()), nil
}

func estimateReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, bridge.ErrTimeout):
		return "timeout"
	default:
		return "other"
	}
}
