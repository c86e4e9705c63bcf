package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DucLoc1999/Dexonic-Trading/internal/broker"
	"github.com/DucLoc1999/Dexonic-Trading/internal/jsonl"
)

func TestRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.jsonl")

	live := jsonl.Open(path, "live")
	a := &broker.Order{ID: "a", Side: broker.SideBuy, TxHash: common.HexToHash("0x0a"), Status: broker.StatusPending}
	b := &broker.Order{ID: "b", Side: broker.SideSell, TxHash: common.HexToHash("0x0b"), Status: broker.StatusPending}
	c := &broker.Order{ID: "c", Side: broker.SideBuy, TxHash: common.HexToHash("0x0c"), Status: broker.StatusPending}
	for _, o := range []*broker.Order{a, b, c} {
		if err := live.Append("order_placed", o, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	filled := *a
	filled.Status = broker.StatusFilled
	if err := live.Append("order_filled", &filled, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := live.Append("order_failed", broker.OrderPlan{Side: broker.SideBuy}, errors.New("mempool full")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := live.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	dry := jsonl.Open(path, "dry")
	if err := dry.Append("order_placed", &broker.Order{ID: "d", Status: broker.StatusPending}, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	dry.Close()

	got, err := Rebuild(path)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("got %+v want orders b, c", got)
	}
	if got[0].TxHash != common.HexToHash("0x0b") || got[0].Side != broker.SideSell {
		t.Fatalf("unexpected order: %+v", got[0])
	}
}

func TestRebuild_MissingJournal(t *testing.T) {
	got, err := Rebuild(filepath.Join(t.TempDir(), "none.jsonl"))
	if err != nil || got != nil {
		t.Fatalf("got %v, %v", got, err)
	}
}
