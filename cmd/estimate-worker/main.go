package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"greenledger/restoration-portal/portal-backend/internal/audit"
	"greenledger/restoration-portal/portal-backend/internal/config"
	"greenledger/restoration-portal/portal-backend/internal/projects"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded .env file")
	}

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	auditLog := audit.NewGormLog(db)
	repo := projects.NewGormRepository(db)
	service := projects.NewService(repo, auditLog, logger)

	worker := projects.NewEstimateWorker(service, logger, projects.EstimateWorkerConfig{
		CronSpec:  cfg.Worker.EstimateRefreshSpec,
		BatchSize: 200,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		logger.Fatal("Failed to start estimate worker", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down estimate worker...")
	cancel()
	worker.Stop()
}
