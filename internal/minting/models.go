package minting

import (
	"time"

	"github.com/google/uuid"
)

// CreditSource records which credit figure backed a mint
type CreditSource string

const (
	SourceCalculated CreditSource = "calculated"
	SourceEstimated  CreditSource = "estimated"
)

// AttemptStatus is the outcome of one ledger call
type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
	// AttemptUnknown means the ledger call timed out with the outcome unknown;
	// the project is blocked until an operator resolves the attempt.
	AttemptUnknown AttemptStatus = "unknown"
)

// MintAttempt is the write-once verification record for one mint call. The
// presence of a succeeded attempt for a project is the idempotency guard;
// a partial unique index enforces at most one (see EnsureIndexes).
type MintAttempt struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	AdminID   uuid.UUID `gorm:"type:uuid;not null" json:"admin_id"`

	RequestedAmount int64         `gorm:"not null" json:"requested_amount"`
	CreditSource    CreditSource  `gorm:"not null" json:"credit_source"`
	RecipientWallet string        `gorm:"not null" json:"recipient_wallet"`
	Status          AttemptStatus `gorm:"not null;index" json:"status"`
	Reason          string        `json:"reason"`

	// Set on success
	TransactionID *string `gorm:"index" json:"transaction_id"`
	MintAddress   *string `json:"mint_address"`

	// Set on failure
	FailureReason *string `json:"failure_reason"`

	// Set when an unknown attempt is reconciled
	ResolvedBy *uuid.UUID `gorm:"type:uuid" json:"resolved_by"`
	ResolvedAt *time.Time `json:"resolved_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MintAttempt) TableName() string {
	return "mint_attempts"
}
