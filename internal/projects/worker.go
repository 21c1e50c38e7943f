package projects

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"greenledger/restoration-portal/portal-backend/pkg/workflows"
)

// EstimateWorkerConfig configuration for the estimate refresh worker
type EstimateWorkerConfig struct {
	// CronSpec is a standard five-field cron expression
	CronSpec  string
	BatchSize int
}

// DefaultEstimateWorkerConfig returns default configuration
func DefaultEstimateWorkerConfig() EstimateWorkerConfig {
	return EstimateWorkerConfig{
		CronSpec:  "0 * * * *",
		BatchSize: 200,
	}
}

// EstimateWorker periodically recomputes the heuristic credit estimate for
// projects that have not reached a terminal state. Estimates drift as the
// engine's optional defaults change; the authoritative calculated figure is
// never touched here.
type EstimateWorker struct {
	service Service
	logger  *zap.Logger
	config  EstimateWorkerConfig

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewEstimateWorker creates a new estimate refresh worker
func NewEstimateWorker(service Service, logger *zap.Logger, config EstimateWorkerConfig) *EstimateWorker {
	if config.CronSpec == "" {
		config = DefaultEstimateWorkerConfig()
	}
	return &EstimateWorker{
		service: service,
		logger:  logger,
		config:  config,
		cron:    cron.New(),
	}
}

// Start schedules the refresh job and starts the cron scheduler
func (w *EstimateWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("estimate worker already running")
	}

	if _, err := w.cron.AddFunc(w.config.CronSpec, func() {
		w.RefreshAll(ctx)
	}); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", w.config.CronSpec, err)
	}

	w.logger.Info("Starting estimate worker", zap.String("cron_spec", w.config.CronSpec))
	w.cron.Start()
	w.running = true
	return nil
}

// Stop stops the cron scheduler and waits for a running job to finish
func (w *EstimateWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	<-w.cron.Stop().Done()
	w.running = false
	w.logger.Info("Estimate worker stopped")
}

// RefreshAll recomputes estimates for every refreshable project. Incomplete
// measurements are skipped, not treated as job failures.
func (w *EstimateWorker) RefreshAll(ctx context.Context) {
	projects, err := w.service.List(ctx, ProjectFilter{
		Statuses: []workflows.ProjectStatus{workflows.StatusPending, workflows.StatusApproved},
		Limit:    w.config.BatchSize,
	})
	if err != nil {
		w.logger.Error("Failed to list projects for estimate refresh", zap.Error(err))
		return
	}

	refreshed := 0
	for _, project := range projects {
		if _, err := w.service.RefreshEstimate(ctx, project.ID); err != nil {
			var invalid *InvalidMeasurementError
			if errors.As(err, &invalid) {
				continue
			}
			w.logger.Warn("Failed to refresh estimate",
				zap.String("project_id", project.ID.String()), zap.Error(err))
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		w.logger.Info("Refreshed project estimates", zap.Int("count", refreshed))
	}
}
