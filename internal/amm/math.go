package amm

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrOverflow              = errors.New("arithmetic overflow")
	ErrInvalidFee            = errors.New("invalid fee factor")
)

// Fee is the share of the input amount that reaches the pool after the LP fee,
// kept as an exact ratio so that no rounding happens before the final division.
type Fee struct {
	Num uint64
	Den uint64
}

// DefaultFee is the PancakeSwap 25 bps pool fee (f = 0.9975).
var DefaultFee = Fee{Num: 9975, Den: 10000}

// ParseFee parses a fee factor such as "0.9975". The factor must be in (0, 1].
func ParseFee(s string) (Fee, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFee, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Fee{}, fmt.Errorf("%w: %q: %v", ErrInvalidFee, s, err)
	}
	if d.Sign() <= 0 || d.GreaterThan(decimal.NewFromInt(1)) {
		return Fee{}, fmt.Errorf("%w: %q must be in (0,1]", ErrInvalidFee, s)
	}
	if d.Equal(decimal.NewFromInt(1)) {
		return Fee{Num: 1, Den: 1}, nil
	}

	exp := d.Exponent()
	if exp < -18 {
		return Fee{}, fmt.Errorf("%w: %q has more than 18 decimals", ErrInvalidFee, s)
	}
	num := new(big.Int).Set(d.Coefficient())
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
	if exp > 0 {
		num.Mul(num, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
		den.SetInt64(1)
	}
	g := new(big.Int).GCD(nil, nil, num, den)
	num.Quo(num, g)
	den.Quo(den, g)
	return Fee{Num: num.Uint64(), Den: den.Uint64()}, nil
}

func (f Fee) Valid() bool {
	return f.Num != 0 && f.Den != 0 && f.Num <= f.Den
}

func (f Fee) String() string {
	if f.Den == 0 {
		return "0"
	}
	return toDecimal(uint256.NewInt(f.Num)).Div(toDecimal(uint256.NewInt(f.Den))).String()
}

// AmountOut returns floor(amountIn*f*reserveOut / (reserveIn + amountIn*f)).
// The result is always strictly below reserveOut.
func AmountOut(amountIn, reserveIn, reserveOut *uint256.Int, fee Fee) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrInvalidAmount
	}
	if err := checkPool(reserveIn, reserveOut, fee); err != nil {
		return nil, err
	}

	inWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, uint256.NewInt(fee.Num))
	if overflow {
		return nil, fmt.Errorf("%w: amountIn=%s * fee", ErrOverflow, amountIn.Dec())
	}
	numerator, overflow := new(uint256.Int).MulOverflow(inWithFee, reserveOut)
	if overflow {
		return nil, fmt.Errorf("%w: numerator amountIn=%s reserveOut=%s", ErrOverflow, amountIn.Dec(), reserveOut.Dec())
	}
	scaledReserve, overflow := new(uint256.Int).MulOverflow(reserveIn, uint256.NewInt(fee.Den))
	if overflow {
		return nil, fmt.Errorf("%w: reserveIn=%s * fee", ErrOverflow, reserveIn.Dec())
	}
	denominator, overflow := new(uint256.Int).AddOverflow(scaledReserve, inWithFee)
	if overflow {
		return nil, fmt.Errorf("%w: denominator reserveIn=%s amountIn=%s", ErrOverflow, reserveIn.Dec(), amountIn.Dec())
	}
	return new(uint256.Int).Div(numerator, denominator), nil
}

// AmountIn returns ceil(reserveIn*amountOut / ((reserveOut-amountOut)*f)),
// the smallest input that is guaranteed to yield at least amountOut.
func AmountIn(amountOut, reserveIn, reserveOut *uint256.Int, fee Fee) (*uint256.Int, error) {
	if amountOut == nil || amountOut.IsZero() {
		return nil, ErrInvalidAmount
	}
	if err := checkPool(reserveIn, reserveOut, fee); err != nil {
		return nil, err
	}
	if !amountOut.Lt(reserveOut) {
		return nil, fmt.Errorf("%w: amountOut=%s >= reserveOut=%s", ErrInsufficientLiquidity, amountOut.Dec(), reserveOut.Dec())
	}

	numerator, overflow := new(uint256.Int).MulOverflow(reserveIn, amountOut)
	if overflow {
		return nil, fmt.Errorf("%w: reserveIn=%s amountOut=%s", ErrOverflow, reserveIn.Dec(), amountOut.Dec())
	}
	numerator, overflow = numerator.MulOverflow(numerator, uint256.NewInt(fee.Den))
	if overflow {
		return nil, fmt.Errorf("%w: numerator * fee", ErrOverflow)
	}
	remaining := new(uint256.Int).Sub(reserveOut, amountOut)
	denominator, overflow := new(uint256.Int).MulOverflow(remaining, uint256.NewInt(fee.Num))
	if overflow {
		return nil, fmt.Errorf("%w: denominator * fee", ErrOverflow)
	}

	quo, rem := new(uint256.Int).DivMod(numerator, denominator, new(uint256.Int))
	if !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	return quo, nil
}

// SpotPrice is the marginal pool price in base units of out per base unit of in.
func SpotPrice(reserveIn, reserveOut *uint256.Int) decimal.Decimal {
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() {
		return decimal.Zero
	}
	return toDecimal(reserveOut).Div(toDecimal(reserveIn))
}

// PriceImpact is the relative drop between the marginal pool price and the
// execution price of a swap, as a fraction in [0,1).
func PriceImpact(amountIn, amountOut, reserveIn, reserveOut *uint256.Int) decimal.Decimal {
	if amountIn == nil || amountOut == nil || reserveIn == nil || reserveOut == nil {
		return decimal.Zero
	}
	if amountIn.IsZero() || reserveIn.IsZero() || reserveOut.IsZero() {
		return decimal.Zero
	}
	spot := SpotPrice(reserveIn, reserveOut)
	exec := toDecimal(amountOut).Div(toDecimal(amountIn))
	if spot.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(exec.Div(spot))
}

func checkPool(reserveIn, reserveOut *uint256.Int, fee Fee) error {
	if !fee.Valid() {
		return fmt.Errorf("%w: %d/%d", ErrInvalidFee, fee.Num, fee.Den)
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return fmt.Errorf("%w: empty pool", ErrInsufficientLiquidity)
	}
	return nil
}

func toDecimal(x *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(x.ToBig(), 0)
}
