// Package state persists the orders cmd/reconcile still has to settle.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DucLoc1999/Dexonic-Trading/internal/aptos"
	"github.com/DucLoc1999/Dexonic-Trading/internal/broker"
)

type Pending struct {
	ChainID uint8  `json:"chain_id"`
	Account string `json:"account"`
	Router  string `json:"router"`

	Orders []*broker.Order `json:"orders"`
}

func LoadPending(path string) (Pending, bool, error) {
	if path == "" {
		return Pending{}, false, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Pending{}, false, nil
		}
		return Pending{}, false, err
	}

	var p Pending
	if err := json.Unmarshal(b, &p); err != nil {
		return Pending{}, false, fmt.Errorf("parse pending orders %s: %w", path, err)
	}
	return p, true, nil
}

// SavePending writes p atomically (tmp file + rename).
func SavePending(path string, p Pending) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Compatible reports whether the file was written for the same chain, account
// and router. An empty file is compatible with anything.
func (p Pending) Compatible(chainID uint8, account, router string) error {
	if len(p.Orders) == 0 {
		return nil
	}
	if p.ChainID != 0 && p.ChainID != chainID {
		return fmt.Errorf("pending orders are for chain %d, node reports %d", p.ChainID, chainID)
	}
	if p.Account != "" && !aptos.SameAddress(p.Account, account) {
		return fmt.Errorf("pending orders belong to %s, not %s", p.Account, account)
	}
	if p.Router != "" && !aptos.SameAddress(p.Router, router) {
		return fmt.Errorf("pending orders were placed on router %s, not %s", p.Router, router)
	}
	return nil
}

// Add appends an order unless one with the same id is already tracked.
func (p *Pending) Add(o *broker.Order) {
	if o == nil {
		return
	}
	for _, have := range p.Orders {
		if have.ID == o.ID {
			return
		}
	}
	p.Orders = append(p.Orders, o)
}

// Prune drops terminal orders and returns them.
func (p *Pending) Prune() []*broker.Order {
	var done []*broker.Order
	kept := p.Orders[:0]
	for _, o := range p.Orders {
		if o == nil {
			continue
		}
		if o.Status.Terminal() {
			done = append(done, o)
			continue
		}
		kept = append(kept, o)
	}
	p.Orders = kept
	return done
}
