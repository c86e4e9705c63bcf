package broker

import (
	"errors"

	"github.com/DucLoc1999/Dexonic-Trading/internal/amm"
	"github.com/DucLoc1999/Dexonic-Trading/internal/tokens"
)

var (
	ErrInvalidAmount         = amm.ErrInvalidAmount
	ErrInsufficientLiquidity = amm.ErrInsufficientLiquidity
	ErrUnknownSymbol         = tokens.ErrUnknownSymbol

	// ErrSubmissionFailed wraps any registration or swap submission failure.
	ErrSubmissionFailed = errors.New("swap submission failed")
	// ErrTransactionReverted is recorded on orders whose transaction aborted on chain.
	ErrTransactionReverted = errors.New("transaction reverted")

	errInvalidSide = errors.New("invalid order side")
	errNoTx        = errors.New("order has no transaction hash")
)
