package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"greenledger/restoration-portal/portal-backend/internal/audit"
	"greenledger/restoration-portal/portal-backend/internal/measurement"
	"greenledger/restoration-portal/portal-backend/pkg/workflows"
)

// InvalidMeasurementError reports which mandatory measurement fields were
// missing or non-numeric. Recoverable by resubmitting data.
type InvalidMeasurementError struct {
	Missing []string
}

func (e *InvalidMeasurementError) Error() string {
	return fmt.Sprintf("invalid measurement, missing fields: %s", strings.Join(e.Missing, ", "))
}

// ErrProjectImmutable is returned when a write targets a project whose mint
// has already succeeded.
var ErrProjectImmutable = errors.New("project is immutable after a successful mint")

// Requests

type SubmitRequest struct {
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	OwnerID       uuid.UUID              `json:"owner_id"`
	AreaHectares  float64                `json:"area_hectares"`
	WalletAddress string                 `json:"wallet_address"`
	Measurement   map[string]interface{} `json:"measurement"`
}

// Service is the project lifecycle boundary used by the HTTP handlers and
// the estimate worker.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Project, error)
	Get(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]*Project, error)
	Approve(ctx context.Context, id, adminID uuid.UUID) (*Project, error)
	Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*Project, error)
	CalculateCredits(ctx context.Context, id, adminID uuid.UUID) (*Project, error)
	RefreshEstimate(ctx context.Context, id uuid.UUID) (*Project, error)
}

type service struct {
	repo         Repository
	auditLog     audit.Log
	validator    *measurement.Validator
	engine       *measurement.Engine
	stateMachine *workflows.StateMachine
	logger       *zap.Logger
}

// NewService creates the project service with its collaborators injected
func NewService(repo Repository, auditLog audit.Log, logger *zap.Logger) Service {
	return &service{
		repo:         repo,
		auditLog:     auditLog,
		validator:    measurement.NewValidator(),
		engine:       measurement.NewEngine(),
		stateMachine: workflows.NewStateMachine(),
		logger:       logger,
	}
}

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*Project, error) {
	if req.Name == "" {
		return nil, errors.New("name is required")
	}
	if req.OwnerID == uuid.Nil {
		return nil, errors.New("owner_id is required")
	}
	if req.AreaHectares <= 0 {
		return nil, errors.New("area_hectares must be positive")
	}

	rawJSON, err := json.Marshal(req.Measurement)
	if err != nil {
		return nil, fmt.Errorf("failed to encode measurement: %w", err)
	}

	project := &Project{
		Name:          req.Name,
		Description:   req.Description,
		OwnerID:       req.OwnerID,
		Status:        workflows.StatusPending,
		AreaHectares:  req.AreaHectares,
		WalletAddress: req.WalletAddress,
		Measurement:   datatypes.JSON(rawJSON),
	}

	// Opportunistic estimate: best effort only, an incomplete measurement is
	// not a submission error.
	if result := s.validator.Validate(req.Measurement); result.Valid {
		m := s.validator.Parse(req.Measurement)
		if comp, err := s.engine.Compute(m, req.AreaHectares); err == nil {
			project.EstimatedCredits = &comp.TotalCredits
		}
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Approve(ctx context.Context, id, adminID uuid.UUID) (*Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.Transition(project.Status, workflows.StatusApproved); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project.Status = workflows.StatusApproved
	project.ReviewedBy = &adminID
	project.ReviewedAt = &now

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.appendAudit(ctx, adminID, audit.ActionProjectApproved, project.ID, "project approved")
	return project, nil
}

func (s *service) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.Transition(project.Status, workflows.StatusRejected); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project.Status = workflows.StatusRejected
	project.ReviewedBy = &adminID
	project.ReviewedAt = &now

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.appendAudit(ctx, adminID, audit.ActionProjectRejected, project.ID, fmt.Sprintf("project rejected: %s", reason))
	return project, nil
}

// CalculateCredits runs the engine against the project's measurement and
// persists the result as the authoritative calculated figure. Re-running
// before a mint simply overwrites; only the mint itself is irreversible.
func (s *service) CalculateCredits(ctx context.Context, id, adminID uuid.UUID) (*Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.IsImmutable {
		return nil, ErrProjectImmutable
	}
	if err := s.stateMachine.Transition(project.Status, workflows.StatusCreditsCalculated); err != nil {
		return nil, err
	}

	raw, err := decodeMeasurement(project.Measurement)
	if err != nil {
		return nil, err
	}
	if result := s.validator.Validate(raw); !result.Valid {
		return nil, &InvalidMeasurementError{Missing: result.Missing}
	}

	m := s.validator.Parse(raw)
	comp, err := s.engine.Compute(m, project.AreaHectares)
	if err != nil {
		return nil, fmt.Errorf("computation failed: %w", err)
	}
	comp.CalculatedAt = time.Now().UTC()

	compJSON, err := json.Marshal(comp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode computation: %w", err)
	}

	project.Status = workflows.StatusCreditsCalculated
	project.CalculatedCredits = &comp.TotalCredits
	project.CalculationData = datatypes.JSON(compJSON)

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.appendAudit(ctx, adminID, audit.ActionCreditsCalculated, project.ID,
		fmt.Sprintf("credits calculated: %.2f total over %.2f ha", comp.TotalCredits, project.AreaHectares))
	return project, nil
}

// RefreshEstimate recomputes the heuristic estimate. This is the only
// operation that writes estimated_credits; list and get stay pure reads.
func (s *service) RefreshEstimate(ctx context.Context, id uuid.UUID) (*Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.IsImmutable {
		return nil, ErrProjectImmutable
	}

	raw, err := decodeMeasurement(project.Measurement)
	if err != nil {
		return nil, err
	}
	if result := s.validator.Validate(raw); !result.Valid {
		return nil, &InvalidMeasurementError{Missing: result.Missing}
	}

	m := s.validator.Parse(raw)
	comp, err := s.engine.Compute(m, project.AreaHectares)
	if err != nil {
		return nil, fmt.Errorf("computation failed: %w", err)
	}

	project.EstimatedCredits = &comp.TotalCredits
	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

func (s *service) appendAudit(ctx context.Context, adminID uuid.UUID, action string, projectID uuid.UUID, details string) {
	entry := &audit.AdminActionLog{
		AdminID:   adminID,
		Action:    action,
		ProjectID: projectID,
		Details:   details,
	}
	// Audit append failures must not roll back the admin action itself
	if err := s.auditLog.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append audit entry",
			zap.String("action", action),
			zap.String("project_id", projectID.String()),
			zap.Error(err))
	}
}

func decodeMeasurement(raw datatypes.JSON) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse stored measurement: %w", err)
	}
	return data, nil
}
