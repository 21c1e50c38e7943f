package projects

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"greenledger/restoration-portal/portal-backend/pkg/workflows"
)

// Project represents a submitted restoration project. The status column is
// the authoritative state machine; credit fields are mutated only by
// administrators or the mint orchestrator. Projects are never deleted.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`

	Status       workflows.ProjectStatus `gorm:"not null;default:'pending';index" json:"status"`
	AreaHectares float64                 `gorm:"not null" json:"area_hectares"`

	// Raw field measurements as submitted. Immutable once a computation has
	// been accepted by an administrator (IsImmutable).
	Measurement datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"measurement"`

	// Credit figures: estimated is an unverified heuristic, calculated is the
	// admin-triggered authoritative number.
	EstimatedCredits  *float64       `gorm:"column:estimated_credits;type:decimal(14,2)" json:"estimated_credits"`
	CalculatedCredits *float64       `gorm:"column:calculated_credits;type:decimal(14,2)" json:"calculated_credits"`
	CalculationData   datatypes.JSON `gorm:"column:calculation_data;type:jsonb" json:"calculation_data"`

	// Minting outcome
	WalletAddress string     `gorm:"column:wallet_address" json:"wallet_address"`
	MintAddress   *string    `gorm:"column:mint_address;index" json:"mint_address"`
	CreditsIssued *int64     `gorm:"column:credits_issued" json:"credits_issued"`
	IsImmutable   bool       `gorm:"column:is_immutable;not null;default:false" json:"is_immutable"`
	MintedAt      *time.Time `gorm:"column:minted_at" json:"minted_at"`

	// Review trail
	ReviewedBy *uuid.UUID `gorm:"column:reviewed_by;type:uuid" json:"reviewed_by"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at" json:"reviewed_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}
