package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/DucLoc1999/Dexonic-Trading/internal/bridge"
	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
)

// Reserves are oriented to a swap direction: In backs the token being spent.
type Reserves struct {
	In  *uint256.Int
	Out *uint256.Int
}

type tokenPairReserve struct {
	ReserveX string `json:"reserve_x"`
	ReserveY string `json:"reserve_y"`
}

// GetReserves reads the pool backing tokenIn -> tokenOut. The pool is stored
// under one ordering of its type arguments only; both orderings are tried.
func (b *Broker) GetReserves(ctx context.Context, tokenIn, tokenOut string) (Reserves, error) {
	typeIn, err := b.registry.Type(tokenIn)
	if err != nil {
		return Reserves{}, err
	}
	typeOut, err := b.registry.Type(tokenOut)
	if err != nil {
		return Reserves{}, err
	}
	return bridge.Do(ctx, b.bridge, func(ctx context.Context) (Reserves, error) {
		return b.reserves(ctx, typeIn, typeOut)
	})
}

func (b *Broker) reserves(ctx context.Context, typeIn, typeOut string) (Reserves, error) {
	x, y, err := b.readPair(ctx, typeIn, typeOut)
	if err == nil {
		return Reserves{In: x, Out: y}, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return Reserves{}, err
	}
	x, y, err = b.readPair(ctx, typeOut, typeIn)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return Reserves{}, fmt.Errorf("%w: no pool for %s and %s: %w", ErrInsufficientLiquidity, typeIn, typeOut, err)
		}
		return Reserves{}, err
	}
	return Reserves{In: y, Out: x}, nil
}

func (b *Broker) readPair(ctx context.Context, typeX, typeY string) (*uint256.Int, *uint256.Int, error) {
	res, err := b.gw.AccountResource(ctx, b.router, b.reserveType(typeX, typeY))
	if err != nil {
		return nil, nil, err
	}
	var data tokenPairReserve
	if err := res.Decode(&data); err != nil {
		return nil, nil, err
	}
	x, err := uint256.FromDecimal(data.ReserveX)
	if err != nil {
		return nil, nil, fmt.Errorf("reserve_x %q: %w", data.ReserveX, err)
	}
	y, err := uint256.FromDecimal(data.ReserveY)
	if err != nil {
		return nil, nil, fmt.Errorf("reserve_y %q: %w", data.ReserveY, err)
	}
	return x, y, nil
}
