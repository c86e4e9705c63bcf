package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/DucLoc1999/Dexonic-Trading/internal/broker"
)

func TestPendingRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "pending.json")

	if _, ok, err := LoadPending(path); err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}

	est := decimal.RequireFromString("0.29")
	p := Pending{ChainID: 1, Account: "0xbeef", Router: "0xc7ef"}
	p.Add(&broker.Order{
		ID:              "0192f6c4-0000-7000-8000-000000000001",
		Pair:            broker.Pair{Currency: "USDT", Token: "APT"},
		Side:            broker.SideBuy,
		TxHash:          common.HexToHash("0x01"),
		Status:          broker.StatusPending,
		EstimatedAmount: &est,
	})
	if err := SavePending(path, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	got, ok, err := LoadPending(path)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got.Orders) != 1 {
		t.Fatalf("got %d orders want 1", len(got.Orders))
	}
	o := got.Orders[0]
	if o.TxHash != common.HexToHash("0x01") || o.Side != broker.SideBuy || !o.EstimatedAmount.Equal(est) {
		t.Fatalf("unexpected order: %+v", o)
	}
}

func TestPendingCompatible(t *testing.T) {
	p := Pending{ChainID: 1, Account: "0xbeef", Router: "0xc7ef", Orders: []*broker.Order{{ID: "a"}}}
	if err := p.Compatible(1, "0x000beef", "0xC7EF"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := p.Compatible(2, "0xbeef", "0xc7ef"); err == nil {
		t.Fatalf("expected chain mismatch")
	}
	if err := p.Compatible(1, "0xdead", "0xc7ef"); err == nil {
		t.Fatalf("expected account mismatch")
	}
	if err := (Pending{}).Compatible(9, "0x1", "0x2"); err != nil {
		t.Fatalf("empty file should be compatible: %v", err)
	}
}

func TestPendingAddPrune(t *testing.T) {
	var p Pending
	a := &broker.Order{ID: "a", Status: broker.StatusPending}
	b := &broker.Order{ID: "b", Status: broker.StatusFilled}
	c := &broker.Order{ID: "c", Status: broker.StatusFailed}
	p.Add(a)
	p.Add(a)
	p.Add(b)
	p.Add(c)
	p.Add(nil)
	if len(p.Orders) != 3 {
		t.Fatalf("got %d orders want 3", len(p.Orders))
	}

	done := p.Prune()
	if len(done) != 2 || done[0].ID != "b" || done[1].ID != "c" {
		t.Fatalf("unexpected pruned: %+v", done)
	}
	if len(p.Orders) != 1 || p.Orders[0].ID != "a" {
		t.Fatalf("unexpected kept: %+v", p.Orders)
	}
}
