package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/DucLoc1999/Dexonic-Trading/internal/broker"
	"github.com/DucLoc1999/Dexonic-Trading/internal/jsonl"
)

// Rebuild replays the order journal at path and returns the orders that were
// placed live and never reached a terminal record, in placement order.
// A missing journal yields no orders.
func Rebuild(path string) ([]*broker.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var order []string
	open := map[string]*broker.Order{}
	err = jsonl.Scan(f, func(rec jsonl.Record) error {
		if rec.Mode == "dry" || len(rec.Data) == 0 || rec.Err != "" {
			return nil
		}
		switch rec.Event {
		case "order_placed", "order_pending", "order_filled", "order_failed":
		default:
			return nil
		}
		var o broker.Order
		if err := json.Unmarshal(rec.Data, &o); err != nil {
			return fmt.Errorf("journal %s: %s: %w", path, rec.Event, err)
		}
		if o.ID == "" {
			return nil
		}
		if o.Status.Terminal() {
			delete(open, o.ID)
			return nil
		}
		if _, seen := open[o.ID]; !seen {
			order = append(order, o.ID)
		}
		open[o.ID] = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []*broker.Order
	for _, id := range order {
		if o, ok := open[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}
