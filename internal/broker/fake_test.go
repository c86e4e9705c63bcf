package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/DucLoc1999/Dexonic-Trading/internal/aptos"
	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
	"github.com/DucLoc1999/Dexonic-Trading/internal/tokens"
)

const (
	testRouter = "0xc7efb4076dbe143cbcd98cfaaa929ecfc8f299203dfff63b95ccb6bfe19850fa"
	testWallet = "0x00000000000000000000000000000000000000000000000000000000000beef1"

	aptType  = "0x1::aptos_coin::AptosCoin"
	usdtType = "0xf22bede237a07e121b56d91a491eb7bcdfd1f5907926a9e58338f964a01b17fa::asset::USDT"
	cakeType = "0x159df6b7689437016108a019fd5bef736bac692b6d4a1f10c941f6fbb9a74ca6::oft::CakeOFT"
)

type fakeSigner struct{ addr string }

func (s fakeSigner) Address() string                 { return s.addr }
func (s fakeSigner) PublicKey() []byte               { return []byte{1} }
func (s fakeSigner) Sign(msg []byte) ([]byte, error) { return msg, nil }

// fakeGateway is an in-memory ledger. Registering a coin creates its store and
// commits immediately; swaps stay unknown until a receipt is set.
type fakeGateway struct {
	mu sync.Mutex

	resources map[string]map[string]json.RawMessage
	receipts  map[common.Hash]*ledger.Receipt

	submitted     []ledger.EntryFunction
	resourceReads []string
	receiptReads  int
	waits         int

	submitErr   error
	resourceErr error
	block       chan struct{}
	finality    chan struct{}
	nextHash    uint64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		resources: map[string]map[string]json.RawMessage{},
		receipts:  map[common.Hash]*ledger.Receipt{},
	}
}

func (g *fakeGateway) setResource(addr, typ string, v any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	addr, _ = aptos.NormalizeAddress(addr)
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	if g.resources[addr] == nil {
		g.resources[addr] = map[string]json.RawMessage{}
	}
	g.resources[addr][typ] = b
}

func (g *fakeGateway) setPool(typeX, typeY string, x, y uint64) {
	g.setResource(testRouter, fmt.Sprintf("%s::swap::TokenPairReserve<%s, %s>", testRouter, typeX, typeY), map[string]string{
		"reserve_x":            fmt.Sprint(x),
		"reserve_y":            fmt.Sprint(y),
		"block_timestamp_last": "1700000000",
	})
}

func (g *fakeGateway) setCoin(addr, coinType string, value uint64) {
	g.setResource(addr, aptos.CoinStoreType(coinType), map[string]any{
		"coin":   map[string]string{"value": fmt.Sprint(value)},
		"frozen": false,
	})
}

func (g *fakeGateway) setReceipt(hash common.Hash, rec *ledger.Receipt) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec.Hash = hash
	g.receipts[hash] = rec
}

func (g *fakeGateway) wait(ctx context.Context) error {
	if g.block == nil {
		return nil
	}
	select {
	case <-g.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *fakeGateway) Submit(ctx context.Context, signer ledger.Signer, payload ledger.EntryFunction) (common.Hash, error) {
	if err := g.wait(ctx); err != nil {
		return common.Hash{}, err
	}
	g.mu.Lock()
	if g.submitErr != nil {
		g.mu.Unlock()
		return common.Hash{}, g.submitErr
	}
	g.nextHash++
	hash := common.BigToHash(new(big.Int).SetUint64(g.nextHash))
	g.submitted = append(g.submitted, payload)
	g.mu.Unlock()

	if payload.Function == aptos.RegisterFunction {
		g.setCoin(signer.Address(), payload.TypeArguments[0], 0)
		g.setReceipt(hash, &ledger.Receipt{Success: true, GasUsed: 10, GasUnitPrice: 100})
	}
	return hash, nil
}

func (g *fakeGateway) WaitForFinality(ctx context.Context, hash common.Hash) error {
	g.mu.Lock()
	g.waits++
	finality := g.finality
	g.mu.Unlock()
	if finality != nil {
		select {
		case <-finality:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g.wait(ctx)
}

func (g *fakeGateway) AccountResources(ctx context.Context, address string) ([]ledger.Resource, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	addr, _ := aptos.NormalizeAddress(address)
	var out []ledger.Resource
	for typ, data := range g.resources[addr] {
		out = append(out, ledger.Resource{Type: typ, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (g *fakeGateway) AccountResource(ctx context.Context, address, resourceType string) (ledger.Resource, error) {
	if err := g.wait(ctx); err != nil {
		return ledger.Resource{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resourceReads = append(g.resourceReads, resourceType)
	if g.resourceErr != nil {
		return ledger.Resource{}, g.resourceErr
	}
	addr, _ := aptos.NormalizeAddress(address)
	data, ok := g.resources[addr][resourceType]
	if !ok {
		return ledger.Resource{}, fmt.Errorf("resource %s: %w", resourceType, ledger.ErrNotFound)
	}
	return ledger.Resource{Type: resourceType, Data: data}, nil
}

func (g *fakeGateway) TransactionByHash(ctx context.Context, hash common.Hash) (*ledger.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receiptReads++
	rec, ok := g.receipts[hash]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (g *fakeGateway) submittedFunctions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.submitted))
	for _, p := range g.submitted {
		out = append(out, p.Function)
	}
	return out
}

func testRegistry(t *testing.T) *tokens.Registry {
	t.Helper()
	r, err := tokens.New([]tokens.Token{
		{Symbol: "APT", Type: aptType, Decimals: 8},
		{Symbol: "USDT", Type: usdtType, Decimals: 6},
		{Symbol: "CAKE", Type: cakeType, Decimals: 8},
	})
	require.NoError(t, err)
	return r
}

func newTestBroker(t *testing.T, gw *fakeGateway, opts ...func(*Config)) *Broker {
	t.Helper()
	cfg := Config{Router: testRouter, Timeout: time.Second}
	for _, o := range opts {
		o(&cfg)
	}
	b, err := New(gw, testRegistry(t), cfg, WithClock(func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}
