package projects

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"greenledger/restoration-portal/portal-backend/internal/audit"
	"greenledger/restoration-portal/portal-backend/pkg/workflows"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, project *Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, project *Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*Project), args.Error(1)
}

// MockAuditLog is a mock implementation of the audit.Log interface
type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) Append(ctx context.Context, entry *audit.AdminActionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLog) ListForProject(ctx context.Context, projectID uuid.UUID) ([]audit.AdminActionLog, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]audit.AdminActionLog), args.Error(1)
}

func completeMeasurement() map[string]interface{} {
	return map[string]interface{}{
		"bulk_density":          1.0,
		"depth_meters":          1.0,
		"carbon_percent":        10.0,
		"agb_biomass":           0.0,
		"bgb_biomass":           0.0,
		"ch4_flux":              0.0,
		"n2o_flux":              0.0,
		"baseline_carbon_stock": 0.0,
		"uncertainty_fraction":  0.0,
	}
}

func measurementJSON(t *testing.T, raw map[string]interface{}) datatypes.JSON {
	t.Helper()
	data, err := json.Marshal(raw)
	assert.NoError(t, err)
	return datatypes.JSON(data)
}

func TestSubmitComputesOpportunisticEstimate(t *testing.T) {
	repo := new(MockRepository)
	auditLog := new(MockAuditLog)
	svc := NewService(repo, auditLog, zap.NewNop())

	repo.On("Create", mock.Anything, mock.AnythingOfType("*projects.Project")).Return(nil)

	project, err := svc.Submit(context.Background(), SubmitRequest{
		Name:         "Delta Wetland",
		OwnerID:      uuid.New(),
		AreaHectares: 10,
		Measurement:  completeMeasurement(),
	})

	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusPending, project.Status)
	assert.NotNil(t, project.EstimatedCredits)
	assert.Equal(t, 36700.0, *project.EstimatedCredits)
	// Submission never produces the authoritative figure
	assert.Nil(t, project.CalculatedCredits)
}

func TestSubmitToleratesIncompleteMeasurement(t *testing.T) {
	repo := new(MockRepository)
	auditLog := new(MockAuditLog)
	svc := NewService(repo, auditLog, zap.NewNop())

	repo.On("Create", mock.Anything, mock.AnythingOfType("*projects.Project")).Return(nil)

	raw := completeMeasurement()
	delete(raw, "carbon_percent")

	project, err := svc.Submit(context.Background(), SubmitRequest{
		Name:         "Delta Wetland",
		OwnerID:      uuid.New(),
		AreaHectares: 10,
		Measurement:  raw,
	})

	assert.NoError(t, err)
	assert.Nil(t, project.EstimatedCredits)
}

func TestSubmitRequiresBasics(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockAuditLog), zap.NewNop())

	_, err := svc.Submit(context.Background(), SubmitRequest{OwnerID: uuid.New(), AreaHectares: 10})
	assert.Error(t, err)

	_, err = svc.Submit(context.Background(), SubmitRequest{Name: "x", OwnerID: uuid.New(), AreaHectares: 0})
	assert.Error(t, err)
}

func TestApproveStampsReviewer(t *testing.T) {
	repo := new(MockRepository)
	auditLog := new(MockAuditLog)
	svc := NewService(repo, auditLog, zap.NewNop())

	project := &Project{ID: uuid.New(), Status: workflows.StatusPending}
	adminID := uuid.New()

	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)
	repo.On("Update", mock.Anything, project).Return(nil)
	auditLog.On("Append", mock.Anything, mock.AnythingOfType("*audit.AdminActionLog")).Return(nil)

	updated, err := svc.Approve(context.Background(), project.ID, adminID)

	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusApproved, updated.Status)
	assert.Equal(t, adminID, *updated.ReviewedBy)
	assert.NotNil(t, updated.ReviewedAt)
	auditLog.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(e *audit.AdminActionLog) bool {
		return e.Action == audit.ActionProjectApproved && e.ProjectID == project.ID
	}))
}

func TestApproveSurvivesAuditFailure(t *testing.T) {
	repo := new(MockRepository)
	auditLog := new(MockAuditLog)
	svc := NewService(repo, auditLog, zap.NewNop())

	project := &Project{ID: uuid.New(), Status: workflows.StatusPending}
	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)
	repo.On("Update", mock.Anything, project).Return(nil)
	auditLog.On("Append", mock.Anything, mock.AnythingOfType("*audit.AdminActionLog")).Return(errors.New("insert failed"))

	// A broken audit sink is logged, not returned; the approval stands
	updated, err := svc.Approve(context.Background(), project.ID, uuid.New())

	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusApproved, updated.Status)
}

func TestApproveRejectedProjectFails(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockAuditLog), zap.NewNop())

	project := &Project{ID: uuid.New(), Status: workflows.StatusRejected}
	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)

	_, err := svc.Approve(context.Background(), project.ID, uuid.New())

	var transition *workflows.TransitionError
	assert.ErrorAs(t, err, &transition)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestRejectRecordsReason(t *testing.T) {
	repo := new(MockRepository)
	auditLog := new(MockAuditLog)
	svc := NewService(repo, auditLog, zap.NewNop())

	project := &Project{ID: uuid.New(), Status: workflows.StatusApproved}
	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)
	repo.On("Update", mock.Anything, project).Return(nil)
	auditLog.On("Append", mock.Anything, mock.AnythingOfType("*audit.AdminActionLog")).Return(nil)

	updated, err := svc.Reject(context.Background(), project.ID, uuid.New(), "satellite imagery disagrees with reported area")

	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusRejected, updated.Status)
	auditLog.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(e *audit.AdminActionLog) bool {
		return e.Action == audit.ActionProjectRejected && len(e.Details) > 0
	}))
}

func TestCalculateCreditsPersistsAuthoritativeFigure(t *testing.T) {
	repo := new(MockRepository)
	auditLog := new(MockAuditLog)
	svc := NewService(repo, auditLog, zap.NewNop())

	project := &Project{
		ID:           uuid.New(),
		Status:       workflows.StatusApproved,
		AreaHectares: 10,
		Measurement:  measurementJSON(t, completeMeasurement()),
	}
	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)
	repo.On("Update", mock.Anything, project).Return(nil)
	auditLog.On("Append", mock.Anything, mock.AnythingOfType("*audit.AdminActionLog")).Return(nil)

	updated, err := svc.CalculateCredits(context.Background(), project.ID, uuid.New())

	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusCreditsCalculated, updated.Status)
	assert.Equal(t, 36700.0, *updated.CalculatedCredits)
	assert.NotEmpty(t, updated.CalculationData)
	auditLog.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(e *audit.AdminActionLog) bool {
		return e.Action == audit.ActionCreditsCalculated
	}))
}

func TestCalculateCreditsReportsMissingFields(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockAuditLog), zap.NewNop())

	raw := completeMeasurement()
	delete(raw, "carbon_percent")
	project := &Project{
		ID:           uuid.New(),
		Status:       workflows.StatusApproved,
		AreaHectares: 10,
		Measurement:  measurementJSON(t, raw),
	}
	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)

	_, err := svc.CalculateCredits(context.Background(), project.ID, uuid.New())

	var invalid *InvalidMeasurementError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, []string{"carbon_percent"}, invalid.Missing)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCalculateCreditsAllowsRecalculation(t *testing.T) {
	repo := new(MockRepository)
	auditLog := new(MockAuditLog)
	svc := NewService(repo, auditLog, zap.NewNop())

	previous := 100.0
	project := &Project{
		ID:                uuid.New(),
		Status:            workflows.StatusCreditsCalculated,
		AreaHectares:      10,
		Measurement:       measurementJSON(t, completeMeasurement()),
		CalculatedCredits: &previous,
	}
	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)
	repo.On("Update", mock.Anything, project).Return(nil)
	auditLog.On("Append", mock.Anything, mock.AnythingOfType("*audit.AdminActionLog")).Return(nil)

	updated, err := svc.CalculateCredits(context.Background(), project.ID, uuid.New())

	assert.NoError(t, err)
	assert.Equal(t, 36700.0, *updated.CalculatedCredits)
}

func TestCalculateCreditsRefusesMintedProject(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockAuditLog), zap.NewNop())

	project := &Project{ID: uuid.New(), Status: workflows.StatusCreditsMinted, IsImmutable: true}
	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)

	_, err := svc.CalculateCredits(context.Background(), project.ID, uuid.New())

	assert.ErrorIs(t, err, ErrProjectImmutable)
}

func TestRefreshEstimateOverwritesEstimateOnly(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockAuditLog), zap.NewNop())

	stale := 1.0
	project := &Project{
		ID:               uuid.New(),
		Status:           workflows.StatusPending,
		AreaHectares:     10,
		Measurement:      measurementJSON(t, completeMeasurement()),
		EstimatedCredits: &stale,
	}
	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)
	repo.On("Update", mock.Anything, project).Return(nil)

	updated, err := svc.RefreshEstimate(context.Background(), project.ID)

	assert.NoError(t, err)
	assert.Equal(t, 36700.0, *updated.EstimatedCredits)
	assert.Nil(t, updated.CalculatedCredits)
}

func TestRefreshEstimateRefusesMintedProject(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockAuditLog), zap.NewNop())

	project := &Project{ID: uuid.New(), Status: workflows.StatusCreditsMinted, IsImmutable: true}
	repo.On("GetByID", mock.Anything, project.ID).Return(project, nil)

	_, err := svc.RefreshEstimate(context.Background(), project.ID)

	assert.ErrorIs(t, err, ErrProjectImmutable)
}
