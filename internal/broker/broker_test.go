package broker

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/DucLoc1999/Dexonic-Trading/internal/amm"
	"github.com/DucLoc1999/Dexonic-Trading/internal/aptos"
	"github.com/DucLoc1999/Dexonic-Trading/internal/bridge"
	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
)

const (
	poolAPT  = 100_000_000_000 // 1000 APT
	poolUSDT = 5_000_000_000   // 5000 USDT
)

func TestGetReserves_EitherOrdering(t *testing.T) {
	for _, stored := range []string{"apt_first", "usdt_first"} {
		t.Run(stored, func(t *testing.T) {
			gw := newFakeGateway()
			if stored == "apt_first" {
				gw.setPool(aptType, usdtType, poolAPT, poolUSDT)
			} else {
				gw.setPool(usdtType, aptType, poolUSDT, poolAPT)
			}
			b := newTestBroker(t, gw)

			r, err := b.GetReserves(context.Background(), "APT", "USDT")
			require.NoError(t, err)
			require.Equal(t, uint64(poolAPT), r.In.Uint64())
			require.Equal(t, uint64(poolUSDT), r.Out.Uint64())

			r, err = b.GetReserves(context.Background(), "USDT", "APT")
			require.NoError(t, err)
			require.Equal(t, uint64(poolUSDT), r.In.Uint64())
			require.Equal(t, uint64(poolAPT), r.Out.Uint64())
		})
	}
}

func TestGetReserves_OtherErrorsPropagate(t *testing.T) {
	gw := newFakeGateway()
	gw.setPool(aptType, usdtType, poolAPT, poolUSDT)
	boom := errors.New("node unavailable")
	gw.resourceErr = boom
	b := newTestBroker(t, gw)

	_, err := b.GetReserves(context.Background(), "USDT", "APT")
	require.ErrorIs(t, err, boom)
	require.Len(t, gw.resourceReads, 1, "no second probe on a non-missing error")
}

func TestGetReserves_NoPool(t *testing.T) {
	b := newTestBroker(t, newFakeGateway())
	_, err := b.GetReserves(context.Background(), "CAKE", "USDT")
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestGetReserves_Timeout(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	b := newTestBroker(t, gw, func(c *Config) { c.Timeout = 20 * time.Millisecond })

	_, err := b.GetReserves(context.Background(), "APT", "USDT")
	require.ErrorIs(t, err, bridge.ErrTimeout)
}

func TestEstimate(t *testing.T) {
	gw := newFakeGateway()
	gw.setPool(aptType, usdtType, 1_000_000, 500_000)
	b := newTestBroker(t, gw)
	ctx := context.Background()

	q, err := b.Estimate(ctx, [2]string{"APT", "USDT"}, big.NewInt(10_000), ModeOutGivenIn)
	require.NoError(t, err)
	require.Equal(t, [2]string{aptType, usdtType}, q.Path)
	require.Equal(t, uint64(10_000), q.Amounts[0].Uint64())
	require.Equal(t, uint64(4938), q.Amounts[1].Uint64())

	q, err = b.Estimate(ctx, [2]string{"APT", "USDT"}, big.NewInt(4938), ModeInGivenOut)
	require.NoError(t, err)
	require.Equal(t, uint64(4938), q.Amounts[1].Uint64())
	out, err := amm.AmountOut(q.Amounts[0], q.Reserves.In, q.Reserves.Out, amm.DefaultFee)
	require.NoError(t, err)
	require.GreaterOrEqual(t, out.Uint64(), uint64(4938))

	_, err = b.Estimate(ctx, [2]string{"APT", "USDT"}, big.NewInt(500_000), ModeInGivenOut)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestEstimate_InvalidInput(t *testing.T) {
	gw := newFakeGateway()
	gw.setPool(aptType, usdtType, poolAPT, poolUSDT)
	b := newTestBroker(t, gw)
	ctx := context.Background()

	for _, amt := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5), new(big.Int).Lsh(big.NewInt(1), 64)} {
		_, err := b.Estimate(ctx, [2]string{"APT", "USDT"}, amt, ModeOutGivenIn)
		require.ErrorIs(t, err, ErrInvalidAmount, "amount %v", amt)
	}
	_, err := b.Estimate(ctx, [2]string{"DOGE", "USDT"}, big.NewInt(1), ModeOutGivenIn)
	require.ErrorIs(t, err, ErrUnknownSymbol)
	require.Empty(t, gw.resourceReads)
}

func TestPlaceOrder_Buy(t *testing.T) {
	gw := newFakeGateway()
	gw.setPool(aptType, usdtType, poolAPT, poolUSDT)
	gw.setCoin(testWallet, usdtType, 10_000_000)
	b := newTestBroker(t, gw)

	bot := &Bot{Account: fakeSigner{addr: testWallet}, Tokens: []string{"APT"}, Currency: "USDT"}
	est := decimal.RequireFromString("0.29")
	order, err := b.PlaceOrder(context.Background(), OrderPlan{
		Pair:            Pair{Currency: "USDT", Token: "APT"},
		Side:            SideBuy,
		Quantity:        decimal.RequireFromString("1.5"),
		EstimatedAmount: &est,
	}, bot)
	require.NoError(t, err)

	require.Equal(t, StatusPending, order.Status)
	id, err := uuid.Parse(order.ID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())
	require.Equal(t, &est, order.EstimatedAmount)
	require.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), order.CreateTime)

	// APT had no coin store: it is registered, and waited for, before the swap.
	require.Equal(t, []string{aptos.RegisterFunction, testRouter + "::router::swap_exact_input"}, gw.submittedFunctions())
	require.Equal(t, 1, gw.waits)
	n := len(gw.resourceReads)
	require.Equal(t, aptos.CoinStoreType(usdtType), gw.resourceReads[n-2])
	require.Equal(t, aptos.CoinStoreType(aptType), gw.resourceReads[n-1])

	swap := gw.submitted[1]
	require.Equal(t, []string{usdtType, aptType}, swap.TypeArguments)
	require.Equal(t, []any{"1500000", "0"}, swap.Arguments)
	require.Equal(t, common.BigToHash(big.NewInt(2)), order.TxHash)
}

func TestPlaceOrder_SellUsesTokenQuantity(t *testing.T) {
	gw := newFakeGateway()
	gw.setPool(usdtType, aptType, poolUSDT, poolAPT)
	gw.setCoin(testWallet, usdtType, 0)
	gw.setCoin(testWallet, aptType, 100_000_000)
	b := newTestBroker(t, gw, func(c *Config) { c.MinAmountOut = FloorSlippageBps(100) })

	bot := &Bot{Account: fakeSigner{addr: testWallet}, Tokens: []string{"APT"}, Currency: "USDT"}
	order, err := b.PlaceOrder(context.Background(), OrderPlan{
		Pair:     Pair{Currency: "USDT", Token: "APT"},
		Side:     SideSell,
		Quantity: decimal.RequireFromString("0.3"),
	}, bot)
	require.NoError(t, err)
	require.NotNil(t, order)

	want, err := amm.AmountOut(uint256.NewInt(30_000_000), uint256.NewInt(poolAPT), uint256.NewInt(poolUSDT), amm.DefaultFee)
	require.NoError(t, err)
	floor := FloorSlippageBps(100)(want)

	require.Equal(t, []string{testRouter + "::router::swap_exact_input"}, gw.submittedFunctions())
	swap := gw.submitted[0]
	require.Equal(t, []string{aptType, usdtType}, swap.TypeArguments)
	require.Equal(t, []any{"30000000", floor.Dec()}, swap.Arguments)
}

func TestPlaceOrder_Failures(t *testing.T) {
	bot := &Bot{Account: fakeSigner{addr: testWallet}, Tokens: []string{"APT"}, Currency: "USDT"}
	plan := OrderPlan{Pair: Pair{Currency: "USDT", Token: "APT"}, Side: SideBuy, Quantity: decimal.NewFromInt(1)}

	t.Run("submission", func(t *testing.T) {
		gw := newFakeGateway()
		gw.setPool(aptType, usdtType, poolAPT, poolUSDT)
		gw.setCoin(testWallet, usdtType, 0)
		gw.setCoin(testWallet, aptType, 0)
		gw.submitErr = errors.New("mempool full")
		b := newTestBroker(t, gw)

		order, err := b.PlaceOrder(context.Background(), plan, bot)
		require.Nil(t, order)
		require.ErrorIs(t, err, ErrSubmissionFailed)
	})

	t.Run("estimate", func(t *testing.T) {
		gw := newFakeGateway()
		b := newTestBroker(t, gw)

		order, err := b.PlaceOrder(context.Background(), plan, bot)
		require.Nil(t, order)
		require.ErrorIs(t, err, ErrInsufficientLiquidity)
		require.NotErrorIs(t, err, ErrSubmissionFailed)
		require.Empty(t, gw.submittedFunctions())
	})

	t.Run("registration", func(t *testing.T) {
		gw := newFakeGateway()
		gw.setPool(aptType, usdtType, poolAPT, poolUSDT)
		gw.submitErr = errors.New("sequence number too old")
		b := newTestBroker(t, gw)

		order, err := b.PlaceOrder(context.Background(), plan, bot)
		require.Nil(t, order)
		require.ErrorIs(t, err, ErrSubmissionFailed)
	})

	t.Run("zero_quantity", func(t *testing.T) {
		gw := newFakeGateway()
		gw.setPool(aptType, usdtType, poolAPT, poolUSDT)
		b := newTestBroker(t, gw)

		p := plan
		p.Quantity = decimal.RequireFromString("0.0000001")
		order, err := b.PlaceOrder(context.Background(), p, bot)
		require.Nil(t, order)
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("side", func(t *testing.T) {
		b := newTestBroker(t, newFakeGateway())
		p := plan
		p.Side = "hold"
		_, err := b.PlaceOrder(context.Background(), p, bot)
		require.Error(t, err)
	})
}

func TestSwapExactOutput_DefaultMaxIn(t *testing.T) {
	gw := newFakeGateway()
	gw.setPool(aptType, usdtType, poolAPT, poolUSDT)
	gw.setCoin(testWallet, usdtType, 0)
	gw.setCoin(testWallet, aptType, 0)
	b := newTestBroker(t, gw)

	_, err := b.SwapExactOutput(context.Background(), fakeSigner{addr: testWallet}, [2]string{"USDT", "APT"}, big.NewInt(10_000_000), nil)
	require.NoError(t, err)

	in, err := amm.AmountIn(uint256.NewInt(10_000_000), uint256.NewInt(poolUSDT), uint256.NewInt(poolAPT), amm.DefaultFee)
	require.NoError(t, err)
	maxIn := new(uint256.Int).Mul(in, uint256.NewInt(11))
	maxIn.Div(maxIn, uint256.NewInt(10))

	swap := gw.submitted[0]
	require.Equal(t, testRouter+"::router::swap_exact_output", swap.Function)
	require.Equal(t, []any{"10000000", maxIn.Dec()}, swap.Arguments)
}

func TestFloorSlippageBps(t *testing.T) {
	require.Equal(t, uint64(9_950), FloorSlippageBps(50)(uint256.NewInt(10_000)).Uint64())
	require.Equal(t, uint64(98), FloorSlippageBps(100)(uint256.NewInt(99)).Uint64())
	require.True(t, FloorZero(uint256.NewInt(10_000)).IsZero())
}
