package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action tags recorded by the portal
const (
	ActionProjectApproved   = "project_approved"
	ActionProjectRejected   = "project_rejected"
	ActionCreditsCalculated = "credits_calculated"
	ActionEstimateRefreshed = "estimate_refreshed"
	ActionMintSucceeded     = "mint_succeeded"
	ActionMintFailed        = "mint_failed"
	ActionMintUnrecorded    = "mint_unrecorded"
	ActionMintTimeout       = "mint_timeout"
	ActionAttemptResolved   = "mint_attempt_resolved"
)

// AdminActionLog is one append-only row in the administrator action trail.
// Rows are never updated or deleted.
type AdminActionLog struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AdminID   uuid.UUID `gorm:"type:uuid;not null;index" json:"admin_id"`
	Action    string    `gorm:"not null;index" json:"action"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Details   string    `json:"details"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AdminActionLog) TableName() string {
	return "admin_logs"
}
