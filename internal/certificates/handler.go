package certificates

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"greenledger/restoration-portal/portal-backend/internal/projects"
)

// Handler serves issuance certificates
type Handler struct {
	service   projects.Service
	generator *Generator
	logger    *zap.Logger
}

// NewHandler creates a new certificates handler
func NewHandler(service projects.Service, generator *Generator, logger *zap.Logger) *Handler {
	return &Handler{
		service:   service,
		generator: generator,
		logger:    logger,
	}
}

// RegisterRoutes registers certificate routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/projects/:id/certificate", h.getCertificate)
}

// getCertificate handles GET /api/v1/projects/:id/certificate
func (h *Handler) getCertificate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	project, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.logger.Error("Failed to load project for certificate", zap.Error(err), zap.String("project_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data, err := h.generator.Generate(project)
	if err != nil {
		if errors.Is(err, ErrNotMinted) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to generate certificate", zap.Error(err), zap.String("project_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=certificate-%s.pdf", project.ID))
	c.Data(http.StatusOK, "application/pdf", data)
}
