package minting

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for mint operations
type Handler struct {
	orchestrator *Orchestrator
	store        Store
	logger       *zap.Logger
}

// NewHandler creates a new minting handler
func NewHandler(orchestrator *Orchestrator, store Store, logger *zap.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
	}
}

// RegisterRoutes registers mint routes. All of them sit behind the admin
// middleware; minting is never a project-owner operation.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/projects/:id/mint", h.mintCredits)
	router.GET("/projects/:id/mint-attempts", h.listAttempts)
	router.POST("/mint-attempts/:id/resolve", h.resolveAttempt)
}

type mintCreditsRequest struct {
	RecipientWallet       string       `json:"recipient_wallet"`
	Amount                string       `json:"amount"`
	Decimals              int          `json:"decimals"`
	Reason                string       `json:"reason"`
	CreditSource          CreditSource `json:"credit_source"`
	AcknowledgeUnverified bool         `json:"acknowledge_unverified"`
	AcknowledgeTruncation bool         `json:"acknowledge_truncation"`
}

type resolveAttemptRequest struct {
	Outcome       AttemptStatus `json:"outcome" binding:"required"`
	TransactionID string        `json:"transaction_id"`
	MintAddress   string        `json:"mint_address"`
	Notes         string        `json:"notes"`
}

// mintCredits handles POST /api/v1/projects/:id/mint
func (h *Handler) mintCredits(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	var req mintCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminID := h.adminID(c)

	response, err := h.orchestrator.Mint(c.Request.Context(), MintRequest{
		ProjectID:             projectID,
		RecipientWallet:       req.RecipientWallet,
		Amount:                req.Amount,
		Decimals:              req.Decimals,
		Reason:                req.Reason,
		RequestedBy:           adminID,
		CreditSource:          req.CreditSource,
		AcknowledgeUnverified: req.AcknowledgeUnverified,
		AcknowledgeTruncation: req.AcknowledgeTruncation,
	})
	if err != nil {
		h.logger.Warn("Mint request failed",
			zap.String("project_id", projectID.String()),
			zap.String("kind", string(KindOf(err))),
			zap.Error(err))
		h.writeMintError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// listAttempts handles GET /api/v1/projects/:id/mint-attempts
func (h *Handler) listAttempts(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	attempts, err := h.store.ListAttempts(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to list mint attempts", zap.Error(err), zap.String("project_id", projectID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts, "total_count": len(attempts)})
}

// resolveAttempt handles POST /api/v1/mint-attempts/:id/resolve
func (h *Handler) resolveAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	var req resolveAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.ResolveAttempt(c.Request.Context(), ResolveRequest{
		AttemptID:     attemptID,
		AdminID:       h.adminID(c),
		Outcome:       req.Outcome,
		TransactionID: req.TransactionID,
		MintAddress:   req.MintAddress,
		Notes:         req.Notes,
	}); err != nil {
		h.logger.Warn("Attempt resolution failed",
			zap.String("attempt_id", attemptID.String()), zap.Error(err))
		h.writeMintError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// writeMintError maps the mint error taxonomy onto HTTP statuses. The kind
// travels in the body so clients can branch without parsing messages.
func (h *Handler) writeMintError(c *gin.Context, err error) {
	var mintErr *MintError
	if !errors.As(err, &mintErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch mintErr.Kind {
	case KindInvalidMeasurement, KindInvalidWallet, KindFractionalAmount, KindUnverifiedCredits, KindInvalidRequest:
		status = http.StatusBadRequest
	case KindInvalidState, KindAlreadyMinted:
		status = http.StatusConflict
	case KindLedgerFailure:
		status = http.StatusBadGateway
	case KindLedgerTimeout:
		status = http.StatusGatewayTimeout
	case KindMintedButUnrecorded:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": mintErr.Message, "kind": mintErr.Kind})
}

// adminID extracts the authenticated admin ID from context (set by auth middleware)
func (h *Handler) adminID(c *gin.Context) uuid.UUID {
	if raw, ok := c.Get("user_id"); ok {
		if id, ok := raw.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
