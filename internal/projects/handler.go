package projects

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"greenledger/restoration-portal/portal-backend/internal/audit"
	"greenledger/restoration-portal/portal-backend/internal/measurement"
	"greenledger/restoration-portal/portal-backend/pkg/workflows"
)

// Handler handles HTTP requests for project lifecycle operations
type Handler struct {
	service   Service
	auditLog  audit.Log
	validator *measurement.Validator
	logger    *zap.Logger
}

// NewHandler creates a new projects handler
func NewHandler(service Service, auditLog audit.Log, logger *zap.Logger) *Handler {
	return &Handler{
		service:   service,
		auditLog:  auditLog,
		validator: measurement.NewValidator(),
		logger:    logger,
	}
}

// RegisterRoutes registers project routes on the authenticated group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.POST("", h.submitProject)
		projects.GET("", h.listProjects)
		projects.GET("/:id", h.getProject)
		projects.POST("/:id/refresh-estimate", h.refreshEstimate)
	}
	router.POST("/measurements/validate", h.validateMeasurement)
}

// RegisterAdminRoutes registers the review and calculation routes that
// require the admin role.
func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.POST("/projects/:id/approve", h.approveProject)
	router.POST("/projects/:id/reject", h.rejectProject)
	router.POST("/projects/:id/calculate", h.calculateCredits)
	router.GET("/projects/:id/audit-log", h.getAuditLog)
}

type rejectProjectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type validateMeasurementRequest struct {
	Measurement map[string]interface{} `json:"measurement" binding:"required"`
}

// submitProject handles POST /api/v1/projects
func (h *Handler) submitProject(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OwnerID == uuid.Nil {
		req.OwnerID = h.userID(c)
	}

	project, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Failed to submit project", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// listProjects handles GET /api/v1/projects
func (h *Handler) listProjects(c *gin.Context) {
	filter := ProjectFilter{}

	if owner := c.Query("owner_id"); owner != "" {
		if id, err := uuid.Parse(owner); err == nil {
			filter.OwnerID = &id
		}
	}
	if status := c.Query("status"); status != "" {
		s := workflows.ProjectStatus(status)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		filter.Statuses = []workflows.ProjectStatus{s}
	}

	projects, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list projects", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects, "total_count": len(projects)})
}

// getProject handles GET /api/v1/projects/:id
func (h *Handler) getProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	project, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// approveProject handles POST /api/v1/projects/:id/approve
func (h *Handler) approveProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	project, err := h.service.Approve(c.Request.Context(), id, h.userID(c))
	if err != nil {
		h.writeServiceError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// rejectProject handles POST /api/v1/projects/:id/reject
func (h *Handler) rejectProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	var req rejectProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.Reject(c.Request.Context(), id, h.userID(c), req.Reason)
	if err != nil {
		h.writeServiceError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// calculateCredits handles POST /api/v1/projects/:id/calculate
func (h *Handler) calculateCredits(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	project, err := h.service.CalculateCredits(c.Request.Context(), id, h.userID(c))
	if err != nil {
		h.writeServiceError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// refreshEstimate handles POST /api/v1/projects/:id/refresh-estimate
func (h *Handler) refreshEstimate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	project, err := h.service.RefreshEstimate(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// validateMeasurement handles POST /api/v1/measurements/validate. It reports
// completeness without persisting anything.
func (h *Handler) validateMeasurement(c *gin.Context) {
	var req validateMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.validator.Validate(req.Measurement))
}

// getAuditLog handles GET /api/v1/projects/:id/audit-log
func (h *Handler) getAuditLog(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	entries, err := h.auditLog.ListForProject(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list audit log", zap.Error(err), zap.String("project_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total_count": len(entries)})
}

// writeServiceError maps service errors onto HTTP statuses
func (h *Handler) writeServiceError(c *gin.Context, id uuid.UUID, err error) {
	var invalid *InvalidMeasurementError
	var transition *workflows.TransitionError

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error(), "missing_fields": invalid.Missing})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": transition.Error()})
	case errors.Is(err, ErrProjectImmutable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Project operation failed", zap.Error(err), zap.String("project_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// userID extracts the authenticated user ID from context (set by auth middleware)
func (h *Handler) userID(c *gin.Context) uuid.UUID {
	if raw, ok := c.Get("user_id"); ok {
		if id, ok := raw.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
