package aptos

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
)

type entryFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

type userTransaction struct {
	Sender                  string               `json:"sender"`
	SequenceNumber          string               `json:"sequence_number"`
	MaxGasAmount            string               `json:"max_gas_amount"`
	GasUnitPrice            string               `json:"gas_unit_price"`
	ExpirationTimestampSecs string               `json:"expiration_timestamp_secs"`
	Payload                 entryFunctionPayload `json:"payload"`
}

type transactionSignature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type signedTransaction struct {
	userTransaction
	Signature transactionSignature `json:"signature"`
}

// Submit builds a user transaction for payload, has the node encode its
// signing message, signs it with signer and submits it. It returns as soon as
// the node accepts the transaction into its mempool.
func (c *Client) Submit(ctx context.Context, signer ledger.Signer, payload ledger.EntryFunction) (common.Hash, error) {
	if signer == nil {
		return common.Hash{}, fmt.Errorf("signer required")
	}
	if strings.Count(payload.Function, "::") != 2 {
		return common.Hash{}, fmt.Errorf("invalid entry function %q", payload.Function)
	}
	sender, err := NormalizeAddress(signer.Address())
	if err != nil {
		return common.Hash{}, fmt.Errorf("sender: %w", err)
	}

	seq, err := c.SequenceNumber(ctx, sender)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sequence number for %s: %w", sender, err)
	}
	gasPrice, err := c.EstimateGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas price: %w", err)
	}

	tx := userTransaction{
		Sender:                  sender,
		SequenceNumber:          strconv.FormatUint(seq, 10),
		MaxGasAmount:            strconv.FormatUint(c.maxGasAmount, 10),
		GasUnitPrice:            strconv.FormatUint(gasPrice, 10),
		ExpirationTimestampSecs: strconv.FormatInt(c.now().Add(c.txTTL).Unix(), 10),
		Payload: entryFunctionPayload{
			Type:          "entry_function_payload",
			Function:      payload.Function,
			TypeArguments: nonNilStrings(payload.TypeArguments),
			Arguments:     nonNilArgs(payload.Arguments),
		},
	}

	var signingMessage string
	if _, err := c.doJSON(ctx, http.MethodPost, "/transactions/encode_submission", nil, tx, &signingMessage); err != nil {
		return common.Hash{}, fmt.Errorf("encode submission: %w", err)
	}
	msg, err := hexutil.Decode(signingMessage)
	if err != nil {
		return common.Hash{}, fmt.Errorf("decode signing message: %w", err)
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	signed := signedTransaction{
		userTransaction: tx,
		Signature: transactionSignature{
			Type:      "ed25519_signature",
			PublicKey: hexutil.Encode(signer.PublicKey()),
			Signature: hexutil.Encode(sig),
		},
	}
	var resp transactionResp
	if _, err := c.doJSON(ctx, http.MethodPost, "/transactions", nil, signed, &resp); err != nil {
		return common.Hash{}, fmt.Errorf("submit transaction: %w", err)
	}
	if strings.TrimSpace(resp.Hash) == "" {
		return common.Hash{}, fmt.Errorf("submit transaction: hash missing in response")
	}
	return common.HexToHash(resp.Hash), nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilArgs(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}
