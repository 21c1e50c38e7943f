package minting

import (
	"context"
	"errors"
)

// ErrConfirmationTimeout is returned by a ledger client when a submitted
// transaction could not be confirmed before the deadline. The outcome is
// unknown: the transaction may still land on-ledger.
var ErrConfirmationTimeout = errors.New("ledger confirmation timeout")

// MintParams is the minimal instruction handed to the ledger
type MintParams struct {
	// Recipient wallet address, base58
	Recipient string
	// Token amount, whole units (decimals 0)
	Amount uint64
}

// MintResult is the durable on-ledger outcome of one mint
type MintResult struct {
	// Transaction signature, base58
	Signature string
	// Address of the created mint account, base58
	MintAddress string
	// Slot the transaction was confirmed in
	Slot uint64
}

// LedgerClient mints tokens on the external ledger. The call is irreversible
// once it returns success; no compensating transaction exists.
type LedgerClient interface {
	Mint(ctx context.Context, params MintParams) (*MintResult, error)
}
