package minting

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"greenledger/restoration-portal/portal-backend/internal/projects"
)

// Store is the persistence boundary the orchestrator writes through. The
// success path must be atomic: attempt row, project fields and status move
// together or not at all.
type Store interface {
	GetProject(ctx context.Context, id uuid.UUID) (*projects.Project, error)
	ListAttempts(ctx context.Context, projectID uuid.UUID) ([]MintAttempt, error)
	GetAttempt(ctx context.Context, id uuid.UUID) (*MintAttempt, error)
	RecordAttempt(ctx context.Context, attempt *MintAttempt) error
	CommitMint(ctx context.Context, project *projects.Project, attempt *MintAttempt) error
	SettleAttempt(ctx context.Context, attempt *MintAttempt) error
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates the orchestrator's store backed by the relational store
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// EnsureIndexes creates the partial unique index that enforces at most one
// succeeded attempt per project, the cross-process half of the idempotency
// guard.
func EnsureIndexes(db *gorm.DB) error {
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_mint_attempts_one_success
		 ON mint_attempts (project_id) WHERE status = 'succeeded'`,
	).Error
}

func (s *gormStore) GetProject(ctx context.Context, id uuid.UUID) (*projects.Project, error) {
	var project projects.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *gormStore) ListAttempts(ctx context.Context, projectID uuid.UUID) ([]MintAttempt, error) {
	var attempts []MintAttempt
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&attempts).Error
	return attempts, err
}

func (s *gormStore) GetAttempt(ctx context.Context, id uuid.UUID) (*MintAttempt, error) {
	var attempt MintAttempt
	if err := s.db.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (s *gormStore) RecordAttempt(ctx context.Context, attempt *MintAttempt) error {
	return s.db.WithContext(ctx).Create(attempt).Error
}

func (s *gormStore) CommitMint(ctx context.Context, project *projects.Project, attempt *MintAttempt) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The attempt may be brand new (normal path) or an unknown attempt
		// being settled (reconciliation), so upsert on the primary key.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(attempt).Error; err != nil {
			return err
		}
		return tx.Save(project).Error
	})
}

func (s *gormStore) SettleAttempt(ctx context.Context, attempt *MintAttempt) error {
	return s.db.WithContext(ctx).Save(attempt).Error
}
