package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Log is the append-only trail the orchestrator and project service write to.
type Log interface {
	Append(ctx context.Context, entry *AdminActionLog) error
	ListForProject(ctx context.Context, projectID uuid.UUID) ([]AdminActionLog, error)
}

type gormLog struct {
	db *gorm.DB
}

// NewGormLog creates an audit log backed by the relational store
func NewGormLog(db *gorm.DB) Log {
	return &gormLog{db: db}
}

func (l *gormLog) Append(ctx context.Context, entry *AdminActionLog) error {
	return l.db.WithContext(ctx).Create(entry).Error
}

func (l *gormLog) ListForProject(ctx context.Context, projectID uuid.UUID) ([]AdminActionLog, error) {
	var entries []AdminActionLog
	err := l.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
