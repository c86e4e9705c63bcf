package broker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/DucLoc1999/Dexonic-Trading/internal/bridge"
	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
)

const swapEventMarker = "::swap::SwapEvent"

type swapEventData struct {
	AmountXIn  string `json:"amount_x_in"`
	AmountXOut string `json:"amount_x_out"`
	AmountYIn  string `json:"amount_y_in"`
	AmountYOut string `json:"amount_y_out"`
}

// ParseSwapEvent sums the pool's x and y legs of the first swap event. ok is
// false when the events carry no swap event.
func ParseSwapEvent(events []ledger.Event) (amountIn, amountOut *big.Int, ok bool, err error) {
	for _, ev := range events {
		if !strings.Contains(ev.Type, swapEventMarker) {
			continue
		}
		var data swapEventData
		if err := ev.Decode(&data); err != nil {
			return nil, nil, false, err
		}
		xIn, err := parseAmount("amount_x_in", data.AmountXIn)
		if err != nil {
			return nil, nil, false, err
		}
		xOut, err := parseAmount("amount_x_out", data.AmountXOut)
		if err != nil {
			return nil, nil, false, err
		}
		yIn, err := parseAmount("amount_y_in", data.AmountYIn)
		if err != nil {
			return nil, nil, false, err
		}
		yOut, err := parseAmount("amount_y_out", data.AmountYOut)
		if err != nil {
			return nil, nil, false, err
		}
		return new(big.Int).Add(xIn, yIn), new(big.Int).Add(xOut, yOut), true, nil
	}
	return nil, nil, false, nil
}

func parseAmount(field, v string) (*big.Int, error) {
	if v == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("swap event %s: invalid amount %q", field, v)
	}
	return n, nil
}

// UpdateOrder refreshes a pending order from its transaction receipt. changed
// reports whether the order moved to a terminal status. A receipt that is not
// yet available or not yet indexed leaves the order untouched.
func (b *Broker) UpdateOrder(ctx context.Context, order *Order, wait bool) (bool, error) {
	if order == nil {
		return false, fmt.Errorf("order required")
	}
	if order.Status.Terminal() {
		return false, nil
	}
	if order.TxHash == (common.Hash{}) {
		return false, fmt.Errorf("order %s: %w", order.ID, errNoTx)
	}
	log := b.log.With(zap.String("order_id", order.ID), zap.String("tx", order.TxHash.Hex()))

	rec, err := bridge.Do(ctx, b.bridge, func(ctx context.Context) (*ledger.Receipt, error) {
		if wait {
			if err := b.gw.WaitForFinality(ctx, order.TxHash); err != nil {
				return nil, err
			}
		}
		return b.gw.TransactionByHash(ctx, order.TxHash)
	})
	if errors.Is(err, ledger.ErrNotFound) {
		log.Debug("receipt not ready")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("order %s receipt: %w", order.ID, err)
	}
	if rec.Pending {
		log.Debug("transaction pending")
		return false, nil
	}

	gasFee := new(big.Int).Mul(new(big.Int).SetUint64(rec.GasUsed), new(big.Int).SetUint64(rec.GasUnitPrice))
	if !rec.Success {
		order.fail(fmt.Errorf("%w: %s", ErrTransactionReverted, rec.VMStatus), gasFee)
		b.metrics.OrdersReconciled.WithLabelValues(string(StatusFailed)).Inc()
		log.Warn("order failed on chain", zap.String("vm_status", rec.VMStatus))
		return true, nil
	}
	if rec.GasUsed == 0 || len(rec.Events) == 0 {
		log.Debug("receipt events not indexed")
		return false, nil
	}

	f, ready, err := b.fillFromReceipt(order, rec)
	if err != nil {
		return false, fmt.Errorf("order %s: %w", order.ID, err)
	}
	if !ready {
		log.Warn("receipt has no swap event")
		return false, nil
	}
	f.fee = gasFee
	order.apply(f)
	b.metrics.OrdersReconciled.WithLabelValues(string(StatusFilled)).Inc()
	log.Info("order filled",
		zap.String("price", order.Price.String()),
		zap.String("qty", order.Quantity.String()),
		zap.String("fee", gasFee.String()),
	)
	return true, nil
}

func (b *Broker) fillFromReceipt(order *Order, rec *ledger.Receipt) (fill, bool, error) {
	inUnits, outUnits, ok, err := ParseSwapEvent(rec.Events)
	if err != nil || !ok {
		return fill{}, false, err
	}
	if inUnits.Sign() == 0 || outUnits.Sign() == 0 {
		return fill{}, false, nil
	}
	path, err := order.Pair.Path(order.Side)
	if err != nil {
		return fill{}, false, err
	}
	in, err := b.registry.FromBaseUnits(path[0], inUnits)
	if err != nil {
		return fill{}, false, err
	}
	out, err := b.registry.FromBaseUnits(path[1], outUnits)
	if err != nil {
		return fill{}, false, err
	}

	f := fill{in: in, out: out, inUnits: inUnits, outUnits: outUnits, at: rec.Timestamp.UTC()}
	if order.Side == SideBuy {
		f.price = in.DivRound(out, priceScale)
		f.qty = out
	} else {
		f.price = out.DivRound(in, priceScale)
		f.qty = in
	}
	return f, true, nil
}

// priceScale is the number of decimal places kept on fill prices.
const priceScale = 18

// UpdateOrders reconciles every pending order. A failure on one order is
// logged and does not stop the others. It returns the orders that changed.
func (b *Broker) UpdateOrders(ctx context.Context, orders []*Order, wait bool) []*Order {
	var changed []*Order
	for _, o := range orders {
		if o == nil || o.Status.Terminal() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		ok, err := b.UpdateOrder(ctx, o, wait)
		if err != nil {
			b.log.Warn("update order failed", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		if ok {
			changed = append(changed, o)
		}
	}
	return changed
}
