// Package ledger describes the chain capability the broker consumes: submit a
// signed entry-function transaction, wait for it, and read account resources
// and transaction receipts.
//
// Implementations are eventually consistent. A submitted transaction may be
// unknown for a while, and a committed one may be visible before its events
// are indexed. Callers are expected to tolerate both.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotFound is returned when a resource or transaction does not exist (yet).
var ErrNotFound = errors.New("ledger: not found")

type Resource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (r Resource) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("resource %s: empty data", r.Type)
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode resource %s: %w", r.Type, err)
	}
	return nil
}

// EntryFunction is a Move entry function call, e.g.
// 0x1::managed_coin::register<T>().
type EntryFunction struct {
	Function      string
	TypeArguments []string
	// Arguments are JSON values as the node expects them; u64 values are
	// decimal strings.
	Arguments []any
}

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode event %s: %w", e.Type, err)
	}
	return nil
}

type Receipt struct {
	Hash common.Hash

	// Pending is true while the transaction sits in the mempool. Success and
	// the gas fields are meaningless until it is false.
	Pending bool

	Success      bool
	VMStatus     string
	GasUsed      uint64
	GasUnitPrice uint64
	Events       []Event
	Timestamp    time.Time
}

// Signer is an account able to authorize transactions.
type Signer interface {
	Address() string
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)
}

type Gateway interface {
	Submit(ctx context.Context, signer Signer, payload EntryFunction) (common.Hash, error)
	WaitForFinality(ctx context.Context, hash common.Hash) error
	AccountResources(ctx context.Context, address string) ([]Resource, error)
	AccountResource(ctx context.Context, address, resourceType string) (Resource, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*Receipt, error)
}
