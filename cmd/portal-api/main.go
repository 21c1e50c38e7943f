package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"greenledger/restoration-portal/portal-backend/internal/audit"
	"greenledger/restoration-portal/portal-backend/internal/auth"
	"greenledger/restoration-portal/portal-backend/internal/certificates"
	"greenledger/restoration-portal/portal-backend/internal/config"
	"greenledger/restoration-portal/portal-backend/internal/minting"
	"greenledger/restoration-portal/portal-backend/internal/projects"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Local development overrides
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded .env file")
	}

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(&projects.Project{}, &minting.MintAttempt{}, &audit.AdminActionLog{}); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := minting.EnsureIndexes(db); err != nil {
		logger.Fatal("Failed to create mint indexes", zap.Error(err))
	}

	// Ledger client
	ledger, err := minting.NewSolanaClient(minting.SolanaConfig{
		RPCURL:           cfg.Solana.RPCURL,
		MintAuthorityKey: cfg.Solana.MintAuthorityKey,
		ConfirmInterval:  cfg.Solana.ConfirmInterval,
	})
	if err != nil {
		logger.Fatal("Failed to initialize ledger client", zap.Error(err))
	}

	// Wire modules
	auditLog := audit.NewGormLog(db)
	projectRepo := projects.NewGormRepository(db)
	projectService := projects.NewService(projectRepo, auditLog, logger)
	projectHandler := projects.NewHandler(projectService, auditLog, logger)

	mintStore := minting.NewGormStore(db)
	orchestrator := minting.NewOrchestrator(mintStore, ledger, auditLog, logger, minting.OrchestratorConfig{
		LedgerTimeout: cfg.Solana.MintTimeout,
	})
	mintHandler := minting.NewHandler(orchestrator, mintStore, logger)

	certHandler := certificates.NewHandler(projectService, certificates.NewGenerator(certificates.DefaultOptions()), logger)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1", auth.Middleware(cfg.Auth.JWTSecret))
	{
		projectHandler.RegisterRoutes(api)
		certHandler.RegisterRoutes(api)

		admin := api.Group("/", auth.RequireAdmin())
		{
			projectHandler.RegisterAdminRoutes(admin)
			mintHandler.RegisterRoutes(admin)
		}
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen: %s\n", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", zap.Error(err))
	}

	logger.Info("Server exiting")
}
