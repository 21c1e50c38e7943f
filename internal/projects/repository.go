package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"greenledger/restoration-portal/portal-backend/pkg/workflows"
)

// ProjectFilter narrows List queries
type ProjectFilter struct {
	OwnerID  *uuid.UUID
	Statuses []workflows.ProjectStatus
	Limit    int
}

// Repository is the persistence boundary for projects
type Repository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	Update(ctx context.Context, project *Project) error
	List(ctx context.Context, filter ProjectFilter) ([]*Project, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a project repository backed by the relational store
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, project *Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *gormRepository) Update(ctx context.Context, project *Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

func (r *gormRepository) List(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	query := r.db.WithContext(ctx).Model(&Project{}).Order("created_at DESC")

	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var list []*Project
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
