package broker

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	default:
		return "", fmt.Errorf("%w: %q", errInvalidSide, s)
	}
}

type Status string

const (
	StatusPending Status = "Pending"
	StatusFailed  Status = "Failed"
	StatusFilled  Status = "Filled"
)

func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusFilled
}

// Pair is a market quoted in Currency, e.g. APT/USDT is {Currency: USDT, Token: APT}.
type Pair struct {
	Currency string `json:"currency"`
	Token    string `json:"token"`
}

func (p Pair) String() string { return p.Token + "/" + p.Currency }

// Path returns the swap direction for side: a buy spends Currency for Token,
// a sell spends Token for Currency.
func (p Pair) Path(side Side) ([2]string, error) {
	switch side {
	case SideBuy:
		return [2]string{p.Currency, p.Token}, nil
	case SideSell:
		return [2]string{p.Token, p.Currency}, nil
	default:
		return [2]string{}, fmt.Errorf("%w: %q", errInvalidSide, side)
	}
}

// OrderPlan is a trade intent. Quantity is denominated in the first symbol of
// the swap path: Currency for a buy, Token for a sell.
type OrderPlan struct {
	Pair            Pair
	Side            Side
	Quantity        decimal.Decimal
	EstimatedAmount *decimal.Decimal
}

type TokenBalance struct {
	// Quantity is in base units.
	Quantity *big.Int
	// Value is in the bot's settlement currency.
	Value float64
}

// Bot is the caller-owned account state the broker reads and updates.
type Bot struct {
	Account  ledger.Signer
	Tokens   []string
	Currency string
	Balances map[string]*TokenBalance
}

type Order struct {
	ID     string      `json:"id"`
	Pair   Pair        `json:"pair"`
	Side   Side        `json:"side"`
	TxHash common.Hash `json:"tx"`
	Status Status      `json:"status"`
	// Reason is set on Failed orders.
	Reason string `json:"reason,omitempty"`

	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"qty"`
	ValueIn  decimal.Decimal `json:"value_in"`
	ValueOut decimal.Decimal `json:"value_out"`

	AmountInUnits  *big.Int `json:"amount_in_units,omitempty"`
	AmountOutUnits *big.Int `json:"amount_out_units,omitempty"`
	// Fee is gas_used * gas_unit_price in octas.
	Fee *big.Int `json:"fee,omitempty"`

	EstimatedAmount *decimal.Decimal `json:"estimated_amount,omitempty"`

	CreateTime time.Time `json:"create_time"`
	FilledTime time.Time `json:"filled_time,omitempty"`
}

// Value is the order's notional in the settlement currency.
func (o *Order) Value() decimal.Decimal {
	if o.Side == SideBuy {
		return o.ValueIn
	}
	return o.ValueOut
}

func newOrderID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type fill struct {
	price, qty, in, out decimal.Decimal
	inUnits, outUnits   *big.Int
	fee                 *big.Int
	at                  time.Time
}

// apply moves a pending order to Filled in a single step.
func (o *Order) apply(f fill) {
	o.Price = f.price
	o.Quantity = f.qty
	o.ValueIn = f.in
	o.ValueOut = f.out
	o.AmountInUnits = f.inUnits
	o.AmountOutUnits = f.outUnits
	o.Fee = f.fee
	o.CreateTime = f.at
	o.FilledTime = f.at
	o.Status = StatusFilled
}

func (o *Order) fail(reason error, fee *big.Int) {
	o.Status = StatusFailed
	o.Reason = reason.Error()
	o.Fee = fee
}
