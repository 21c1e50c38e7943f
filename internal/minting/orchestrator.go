package minting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"greenledger/restoration-portal/portal-backend/internal/audit"
	"greenledger/restoration-portal/portal-backend/internal/projects"
	"greenledger/restoration-portal/portal-backend/pkg/workflows"
)

// OrchestratorConfig tunes the mint path
type OrchestratorConfig struct {
	// LedgerTimeout bounds the single blocking ledger call. Expiry means the
	// outcome is unknown, not that the mint failed.
	LedgerTimeout time.Duration
}

// MintRequest is the caller-to-orchestrator boundary. The amount arrives as
// an integer string and decimals are pinned to 0.
type MintRequest struct {
	ProjectID       uuid.UUID    `json:"project_id"`
	RecipientWallet string       `json:"recipient_wallet"`
	Amount          string       `json:"amount"`
	Decimals        int          `json:"decimals"`
	Reason          string       `json:"reason"`
	RequestedBy     uuid.UUID    `json:"requested_by"`
	CreditSource    CreditSource `json:"credit_source"`

	// Server-side stand-ins for what the original gated behind UI confirm
	// dialogs: minting the unaudited estimate, and truncating a fractional
	// amount, each need an explicit acknowledgment.
	AcknowledgeUnverified bool `json:"acknowledge_unverified"`
	AcknowledgeTruncation bool `json:"acknowledge_truncation"`
}

// MintResponse is returned on success
type MintResponse struct {
	MintID          string `json:"mint_id"`
	TransactionID   string `json:"transaction_id"`
	RecipientWallet string `json:"recipient_wallet"`
	AmountIssued    int64  `json:"amount_issued"`
}

// ResolveRequest settles an unknown-outcome attempt after manual
// reconciliation against the ledger.
type ResolveRequest struct {
	AttemptID     uuid.UUID     `json:"attempt_id"`
	AdminID       uuid.UUID     `json:"admin_id"`
	Outcome       AttemptStatus `json:"outcome"`
	TransactionID string        `json:"transaction_id"`
	MintAddress   string        `json:"mint_address"`
	Notes         string        `json:"notes"`
}

// Orchestrator performs exactly one mint attempt per call, persists the
// outcome and writes the audit trail. All dependencies are injected so tests
// can substitute fakes.
type Orchestrator struct {
	store    Store
	ledger   LedgerClient
	auditLog audit.Log
	wallet   *WalletValidator
	sm       *workflows.StateMachine
	logger   *zap.Logger
	config   OrchestratorConfig

	// Serializes concurrent mint attempts on the same project so two callers
	// cannot both pass the immutability check.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewOrchestrator creates the mint orchestrator
func NewOrchestrator(store Store, ledger LedgerClient, auditLog audit.Log, logger *zap.Logger, config OrchestratorConfig) *Orchestrator {
	if config.LedgerTimeout <= 0 {
		config.LedgerTimeout = 5 * time.Minute
	}
	return &Orchestrator{
		store:    store,
		ledger:   ledger,
		auditLog: auditLog,
		wallet:   NewWalletValidator(),
		sm:       workflows.NewStateMachine(),
		logger:   logger,
		config:   config,
	}
}

func (o *Orchestrator) projectLock(id uuid.UUID) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.locks == nil {
		o.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	lock, ok := o.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[id] = lock
	}
	return lock
}

// forgetLock drops a project's mutex once the project is immutable. A caller
// that races onto a fresh mutex still stops at the durable immutability check.
func (o *Orchestrator) forgetLock(id uuid.UUID) {
	o.mu.Lock()
	delete(o.locks, id)
	o.mu.Unlock()
}

// Mint runs the mint state machine for one project: idempotency guard,
// wallet validation, amount coercion, one ledger call, atomic persistence,
// audit append. At most one successful mint per project, enforced before the
// ledger is ever contacted.
func (o *Orchestrator) Mint(ctx context.Context, req MintRequest) (*MintResponse, error) {
	if req.Decimals != 0 {
		return nil, newMintError(KindInvalidRequest, "decimals must be 0, got %d", req.Decimals)
	}
	if req.RequestedBy == uuid.Nil {
		return nil, newMintError(KindInvalidRequest, "requested_by is required")
	}

	lock := o.projectLock(req.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	project, err := o.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	// Idempotency guard: immutable projects and prior succeeded attempts
	// terminate here, before any ledger call.
	if project.IsImmutable {
		return nil, newMintError(KindAlreadyMinted, "project %s has already been minted", project.ID)
	}
	attempts, err := o.store.ListAttempts(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mint attempts: %w", err)
	}
	for i := range attempts {
		switch attempts[i].Status {
		case AttemptSucceeded:
			return nil, newMintError(KindAlreadyMinted, "a successful mint is already recorded for project %s", project.ID)
		case AttemptUnknown:
			return nil, newMintError(KindLedgerTimeout,
				"attempt %s has an unknown outcome; reconcile against the ledger before retrying", attempts[i].ID)
		}
	}

	if !o.sm.CanTransition(project.Status, workflows.StatusCreditsMinted) {
		return nil, newMintError(KindInvalidState, "project status %s is not mintable", project.Status)
	}

	source, creditAmount, err := o.resolveCreditAmount(project, req)
	if err != nil {
		return nil, err
	}

	recipient := req.RecipientWallet
	if recipient == "" {
		recipient = project.WalletAddress
	}
	if result := o.wallet.Validate(recipient); !result.Valid {
		return nil, newMintError(KindInvalidWallet, "%s", result.Reason)
	}

	amount, err := coerceAmount(creditAmount, req.AcknowledgeTruncation)
	if err != nil {
		return nil, err
	}

	attempt := &MintAttempt{
		ID:              uuid.New(),
		ProjectID:       project.ID,
		AdminID:         req.RequestedBy,
		RequestedAmount: amount,
		CreditSource:    source,
		RecipientWallet: recipient,
		Reason:          req.Reason,
	}

	// The one irreversible step. A timeout here means the outcome is
	// unknown; the in-flight submission cannot be cancelled.
	ledgerCtx, cancel := context.WithTimeout(ctx, o.config.LedgerTimeout)
	defer cancel()

	result, mintErr := o.ledger.Mint(ledgerCtx, MintParams{Recipient: recipient, Amount: uint64(amount)})
	if mintErr != nil {
		return nil, o.recordFailure(ctx, project, attempt, mintErr)
	}

	return o.recordSuccess(ctx, project, attempt, result)
}

// resolveCreditAmount picks the credit figure backing the mint. An explicit
// request amount must match a figure the project actually carries; the
// unaudited estimate needs an acknowledgment.
func (o *Orchestrator) resolveCreditAmount(project *projects.Project, req MintRequest) (CreditSource, float64, error) {
	source := req.CreditSource
	if source == "" {
		source = SourceCalculated
	}

	var figure *float64
	switch source {
	case SourceCalculated:
		figure = project.CalculatedCredits
	case SourceEstimated:
		if !req.AcknowledgeUnverified {
			return "", 0, newMintError(KindUnverifiedCredits,
				"minting from the unverified estimate requires acknowledge_unverified")
		}
		figure = project.EstimatedCredits
	default:
		return "", 0, newMintError(KindInvalidRequest, "unknown credit source %q", source)
	}
	if figure == nil {
		return "", 0, newMintError(KindInvalidState, "project has no %s credit amount", source)
	}

	amount := *figure
	if req.Amount != "" {
		parsed, err := strconv.ParseFloat(req.Amount, 64)
		if err != nil {
			return "", 0, newMintError(KindInvalidRequest, "amount %q is not numeric", req.Amount)
		}
		if parsed > *figure {
			return "", 0, newMintError(KindInvalidRequest,
				"requested amount %.2f exceeds %s credits %.2f", parsed, source, *figure)
		}
		amount = parsed
	}
	return source, amount, nil
}

// coerceAmount floors the requested amount to a non-negative integer. A
// lossy floor without explicit acknowledgment is rejected.
func coerceAmount(amount float64, acknowledgeTruncation bool) (int64, error) {
	if amount <= 0 {
		return 0, newMintError(KindInvalidRequest, "amount must be positive, got %.2f", amount)
	}
	floored := math.Floor(amount)
	if floored != amount && !acknowledgeTruncation {
		return 0, newMintError(KindFractionalAmount,
			"amount %.2f requires truncation to %d; set acknowledge_truncation to proceed", amount, int64(floored))
	}
	return int64(floored), nil
}

func (o *Orchestrator) recordSuccess(ctx context.Context, project *projects.Project, attempt *MintAttempt, result *MintResult) (*MintResponse, error) {
	if err := o.sm.Transition(project.Status, workflows.StatusCreditsMinted); err != nil {
		return nil, newMintError(KindInvalidState, "%s", err.Error())
	}

	now := time.Now().UTC()

	attempt.Status = AttemptSucceeded
	attempt.TransactionID = &result.Signature
	attempt.MintAddress = &result.MintAddress

	issued := attempt.RequestedAmount
	project.Status = workflows.StatusCreditsMinted
	project.CreditsIssued = &issued
	project.IsImmutable = true
	project.MintAddress = &result.MintAddress
	project.MintedAt = &now

	if err := o.store.CommitMint(ctx, project, attempt); err != nil {
		// The ledger event is real even though local records are stale.
		// Surface it loudly for manual repair rather than losing it.
		o.logger.Error("mint succeeded on ledger but local persistence failed",
			zap.String("project_id", project.ID.String()),
			zap.String("transaction_id", result.Signature),
			zap.String("mint_address", result.MintAddress),
			zap.Error(err))
		o.appendAudit(ctx, attempt.AdminID, audit.ActionMintUnrecorded, project.ID,
			fmt.Sprintf("ledger transaction %s succeeded for %d credits but persistence failed: %v",
				result.Signature, attempt.RequestedAmount, err))
		return nil, newMintError(KindMintedButUnrecorded,
			"ledger transaction %s succeeded but local persistence failed; manual reconciliation required", result.Signature)
	}

	o.forgetLock(project.ID)

	o.appendAudit(ctx, attempt.AdminID, audit.ActionMintSucceeded, project.ID,
		fmt.Sprintf("minted %d credits (%s) to %s, tx %s, mint %s",
			attempt.RequestedAmount, attempt.CreditSource, attempt.RecipientWallet, result.Signature, result.MintAddress))

	return &MintResponse{
		MintID:          result.MintAddress,
		TransactionID:   result.Signature,
		RecipientWallet: attempt.RecipientWallet,
		AmountIssued:    attempt.RequestedAmount,
	}, nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, project *projects.Project, attempt *MintAttempt, mintErr error) error {
	timedOut := errors.Is(mintErr, ErrConfirmationTimeout) || errors.Is(mintErr, context.DeadlineExceeded)

	reason := mintErr.Error()
	attempt.FailureReason = &reason
	if timedOut {
		attempt.Status = AttemptUnknown
	} else {
		attempt.Status = AttemptFailed
	}

	recordErr := o.store.RecordAttempt(ctx, attempt)
	if recordErr != nil {
		o.logger.Error("failed to record mint attempt",
			zap.String("project_id", project.ID.String()),
			zap.String("attempt_status", string(attempt.Status)),
			zap.Error(recordErr))
	}

	// Ledger-category errors go to the audit trail before being returned;
	// the administrator's next action depends on the exact failure mode.
	if timedOut {
		// Without the unknown attempt row, nothing durable blocks a retried
		// mint; that gap has to be as visible as an unrecorded success.
		if recordErr != nil {
			o.appendAudit(ctx, attempt.AdminID, audit.ActionMintTimeout, project.ID,
				fmt.Sprintf("mint of %d credits to %s timed out with the outcome unknown AND the attempt record failed to persist: %v",
					attempt.RequestedAmount, attempt.RecipientWallet, recordErr))
			return newMintError(KindLedgerTimeout,
				"ledger outcome unknown and the attempt is not on record; the retry guard is not in place, reconcile against the ledger before any further mint")
		}
		o.appendAudit(ctx, attempt.AdminID, audit.ActionMintTimeout, project.ID,
			fmt.Sprintf("mint of %d credits to %s timed out, outcome unknown, attempt %s",
				attempt.RequestedAmount, attempt.RecipientWallet, attempt.ID))
		return newMintError(KindLedgerTimeout,
			"ledger outcome unknown for attempt %s; reconcile before retrying", attempt.ID)
	}

	o.appendAudit(ctx, attempt.AdminID, audit.ActionMintFailed, project.ID,
		fmt.Sprintf("mint of %d credits to %s failed: %s", attempt.RequestedAmount, attempt.RecipientWallet, reason))
	// The ledger's failure reason is returned verbatim; the project stays
	// eligible for a retried attempt.
	return newMintError(KindLedgerFailure, "%s", reason)
}

// ResolveAttempt settles an unknown-outcome attempt once an operator has
// checked the ledger. A confirmed success commits the mint exactly as the
// normal path would; a confirmed failure reopens the project for retry.
func (o *Orchestrator) ResolveAttempt(ctx context.Context, req ResolveRequest) error {
	attempt, err := o.store.GetAttempt(ctx, req.AttemptID)
	if err != nil {
		return fmt.Errorf("attempt not found: %w", err)
	}
	if attempt.Status != AttemptUnknown {
		return newMintError(KindInvalidState, "attempt %s is %s, only unknown attempts can be resolved", attempt.ID, attempt.Status)
	}

	lock := o.projectLock(attempt.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	attempt.ResolvedBy = &req.AdminID
	attempt.ResolvedAt = &now

	switch req.Outcome {
	case AttemptSucceeded:
		if req.TransactionID == "" || req.MintAddress == "" {
			return newMintError(KindInvalidRequest, "resolving as succeeded requires transaction_id and mint_address")
		}
		project, err := o.store.GetProject(ctx, attempt.ProjectID)
		if err != nil {
			return fmt.Errorf("project not found: %w", err)
		}
		result := &MintResult{Signature: req.TransactionID, MintAddress: req.MintAddress}
		if _, err := o.recordSuccess(ctx, project, attempt, result); err != nil {
			return err
		}
	case AttemptFailed:
		attempt.Status = AttemptFailed
		reason := req.Notes
		if reason == "" {
			reason = "confirmed not present on ledger"
		}
		attempt.FailureReason = &reason
		if err := o.store.SettleAttempt(ctx, attempt); err != nil {
			return fmt.Errorf("failed to settle attempt: %w", err)
		}
	default:
		return newMintError(KindInvalidRequest, "outcome must be succeeded or failed")
	}

	o.appendAudit(ctx, req.AdminID, audit.ActionAttemptResolved, attempt.ProjectID,
		fmt.Sprintf("attempt %s resolved as %s: %s", attempt.ID, req.Outcome, req.Notes))
	return nil
}

func (o *Orchestrator) appendAudit(ctx context.Context, adminID uuid.UUID, action string, projectID uuid.UUID, details string) {
	entry := &audit.AdminActionLog{
		AdminID:   adminID,
		Action:    action,
		ProjectID: projectID,
		Details:   details,
	}
	if err := o.auditLog.Append(ctx, entry); err != nil {
		o.logger.Error("failed to append audit entry",
			zap.String("action", action),
			zap.String("project_id", projectID.String()),
			zap.Error(err))
	}
}
