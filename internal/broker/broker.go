// Package broker turns buy/sell intents into swaps against a constant-product
// pool on Aptos and reconciles the resulting orders from transaction receipts.
//
// Every ledger call runs on the broker's bridge so that callers get a hard
// deadline. Reserves are read fresh for every quote; nothing is cached.
package broker

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/DucLoc1999/Dexonic-Trading/internal/amm"
	"github.com/DucLoc1999/Dexonic-Trading/internal/aptos"
	"github.com/DucLoc1999/Dexonic-Trading/internal/bridge"
	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
	"github.com/DucLoc1999/Dexonic-Trading/internal/logging"
	"github.com/DucLoc1999/Dexonic-Trading/internal/metrics"
	"github.com/DucLoc1999/Dexonic-Trading/internal/tokens"
)

// MinOutPolicy derives the minimum accepted output of an exact-input swap from
// the quoted output.
type MinOutPolicy func(estimate *uint256.Int) *uint256.Int

// FloorZero accepts any output. This is the historical behaviour of the
// broker and leaves swaps unprotected against price movement.
func FloorZero(*uint256.Int) *uint256.Int { return new(uint256.Int) }

// FloorSlippageBps accepts down to estimate*(1-bps/10000), rounded down.
func FloorSlippageBps(bps uint32) MinOutPolicy {
	return func(estimate *uint256.Int) *uint256.Int {
		if estimate == nil || bps >= 10_000 {
			return new(uint256.Int)
		}
		out := new(uint256.Int).Mul(estimate, uint256.NewInt(uint64(10_000-bps)))
		return out.Div(out, uint256.NewInt(10_000))
	}
}

// maxInBufferBps pads the quoted input of an exact-output swap when the caller
// gives no bound.
const maxInBufferBps = 1_000

type Config struct {
	// Router is the account that publishes the swap and router modules and
	// holds the TokenPairReserve resources.
	Router string
	Fee    amm.Fee

	// Timeout bounds each bridged ledger call. Zero means 30s.
	Timeout  time.Duration
	Capacity int

	// MinAmountOut is applied when an exact-input swap gets no explicit floor.
	// Nil means FloorZero.
	MinAmountOut MinOutPolicy
}

type Broker struct {
	gw       ledger.Gateway
	registry *tokens.Registry
	router   string
	fee      amm.Fee
	minOut   MinOutPolicy

	bridge  *bridge.Bridge
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Broker)

func WithLogger(l *zap.Logger) Option {
	return func(b *Broker) { b.log = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Broker) {
		if m != nil {
			b.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

// New starts the broker's bridge. Call Close when done.
func New(gw ledger.Gateway, registry *tokens.Registry, cfg Config, opts ...Option) (*Broker, error) {
	if gw == nil {
		return nil, fmt.Errorf("ledger gateway required")
	}
	if registry == nil {
		return nil, fmt.Errorf("token registry required")
	}
	router, err := aptos.NormalizeAddress(cfg.Router)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	fee := cfg.Fee
	if fee == (amm.Fee{}) {
		fee = amm.DefaultFee
	}
	if !fee.Valid() {
		return nil, fmt.Errorf("%w: %d/%d", amm.ErrInvalidFee, fee.Num, fee.Den)
	}
	minOut := cfg.MinAmountOut
	if minOut == nil {
		minOut = FloorZero
	}

	b := &Broker{
		gw:       gw,
		registry: registry,
		router:   router,
		fee:      fee,
		minOut:   minOut,
		log:      zap.NewNop(),
		metrics:  metrics.New(nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.bridge = bridge.New(bridge.Config{
		Timeout:  cfg.Timeout,
		Capacity: cfg.Capacity,
		Observe:  b.metrics.ObserveBridge,
	})
	return b, nil
}

func (b *Broker) Close() { b.bridge.Close() }

func (b *Broker) Registry() *tokens.Registry { return b.registry }

func (b *Broker) Fee() amm.Fee { return b.fee }

func (b *Broker) reserveType(typeIn, typeOut string) string {
	return fmt.Sprintf("%s::swap::TokenPairReserve<%s, %s>", b.router, typeIn, typeOut)
}

func (b *Broker) routerFunction(name string) string {
	return b.router + "::router::" + name
}
