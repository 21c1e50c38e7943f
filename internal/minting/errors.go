package minting

import (
	"errors"
	"fmt"
)

// ErrorKind tags a mint failure so callers know whether and how to retry
type ErrorKind string

const (
	// Recoverable by the caller
	KindInvalidMeasurement ErrorKind = "invalid_measurement"
	KindInvalidWallet      ErrorKind = "invalid_wallet"
	KindFractionalAmount   ErrorKind = "fractional_amount"
	KindUnverifiedCredits  ErrorKind = "unverified_credits"
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindInvalidState       ErrorKind = "invalid_state"

	// Terminal for the project
	KindAlreadyMinted ErrorKind = "already_minted"

	// Ledger category: always audited before being returned
	KindLedgerFailure ErrorKind = "ledger_failure"
	// Outcome unknown: not retryable until the attempt is reconciled
	KindLedgerTimeout ErrorKind = "ledger_timeout"
	// Ledger succeeded but local persistence failed: manual repair required
	KindMintedButUnrecorded ErrorKind = "minted_but_unrecorded"
)

// MintError is the typed failure returned by the orchestrator
type MintError struct {
	Kind    ErrorKind `json:"error_kind"`
	Message string    `json:"message"`
}

func (e *MintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newMintError(kind ErrorKind, format string, args ...interface{}) *MintError {
	return &MintError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the taxonomy kind from an error, or empty if it is not a
// mint error.
func KindOf(err error) ErrorKind {
	var merr *MintError
	if errors.As(err, &merr) {
		return merr.Kind
	}
	return ""
}
