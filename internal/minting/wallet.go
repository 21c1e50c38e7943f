package minting

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Recipient addresses must be base58-encoded and within Solana's public key
// string bounds.
const (
	MinWalletLength = 32
	MaxWalletLength = 44
)

// knownProgramAddresses are non-user accounts that must never receive a mint
var knownProgramAddresses = map[string]string{
	"11111111111111111111111111111111":             "system program",
	"11111111111111111111111111111112":             "system account",
	"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA":  "token program",
	"ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL": "associated token program",
}

// WalletValidationResult reports whether an address may receive a mint
type WalletValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// WalletValidator checks recipient addresses for syntactic validity and
// rejects known non-user accounts. Pure, no I/O.
type WalletValidator struct{}

// NewWalletValidator creates a new wallet validator
func NewWalletValidator() *WalletValidator {
	return &WalletValidator{}
}

// Validate checks length, base58 alphabet and the program denylist
func (v *WalletValidator) Validate(address string) WalletValidationResult {
	if len(address) < MinWalletLength || len(address) > MaxWalletLength {
		return WalletValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("address must be %d-%d characters, got %d", MinWalletLength, MaxWalletLength, len(address)),
		}
	}

	if _, err := base58.Decode(address); err != nil {
		return WalletValidationResult{Valid: false, Reason: "address contains characters outside the base58 alphabet"}
	}

	if reason, denied := knownProgramAddresses[address]; denied {
		return WalletValidationResult{Valid: false, Reason: reason}
	}

	return WalletValidationResult{Valid: true}
}
