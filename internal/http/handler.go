package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thinhlal/mutrapro-system-sub005/internal/esign"
	"github.com/thinhlal/mutrapro-system-sub005/internal/http/middleware"
	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
	"github.com/thinhlal/mutrapro-system-sub005/internal/service"
)

// StatementGenerator renders a contract statement PDF from an aggregate snapshot.
type StatementGenerator interface {
	Generate(agg *model.ContractAggregate) ([]byte, error)
}

// ScheduleGenerator renders the milestone/installment schedule workbook.
type ScheduleGenerator interface {
	Generate(agg *model.ContractAggregate) ([]byte, error)
}

// EsignService is the OTP verification collaborator; verification completes before the
// sign transaction runs.
type EsignService interface {
	InitSession(ctx context.Context, contractID, signatureImage string) (*esign.Session, error)
	Verify(ctx context.Context, sessionID, code string) (bool, error)
}

type Handler struct {
	workflow      *service.Workflow
	esign         EsignService
	pdf           StatementGenerator
	excel         ScheduleGenerator
	webhookSecret string
	log           zerolog.Logger
}

func NewHandler(
	workflow *service.Workflow,
	esignClient EsignService,
	pdf StatementGenerator,
	excel ScheduleGenerator,
	webhookSecret string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		workflow:      workflow,
		esign:         esignClient,
		pdf:           pdf,
		excel:         excel,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/contracts", h.createContract)
	protected.GET("/contracts/:id", h.getContract)
	protected.GET("/contracts/:id/events", h.listEvents)
	protected.GET("/contracts/:id/installments", h.listInstallments)
	protected.GET("/contracts/:id/start-gate", h.startGate)
	protected.GET("/contracts/:id/statement.pdf", h.statementPDF)
	protected.GET("/contracts/:id/schedule.xlsx", h.scheduleXLSX)

	protected.POST("/contracts/:id/send", h.lifecycleVerb(verbSend))
	protected.POST("/contracts/:id/approve", h.lifecycleVerb(verbApprove))
	protected.POST("/contracts/:id/request-revision", h.requestRevision)
	protected.POST("/contracts/:id/return-to-draft", h.lifecycleVerb(verbReturnToDraft))
	protected.POST("/contracts/:id/cancel", h.cancelContract)
	protected.POST("/contracts/:id/sign-sessions", h.initSignSession)
	protected.POST("/contracts/:id/sign", h.signContract)
	protected.POST("/contracts/:id/start-work", h.lifecycleVerb(verbStartWork))

	protected.POST("/milestones/:id/assignments", h.createAssignment)
	protected.POST("/assignments/:id/accept", h.assignmentVerb(verbAccept))
	protected.POST("/assignments/:id/ready", h.assignmentVerb(verbReady))
	protected.POST("/assignments/:id/start", h.assignmentVerb(verbStartTask))
	protected.POST("/assignments/:id/complete", h.assignmentVerb(verbComplete))
	protected.POST("/assignments/:id/issues", h.reportIssue)
	protected.POST("/assignments/:id/issues/resolve", h.assignmentVerb(verbResolveIssue))
	protected.POST("/assignments/:id/cancel", h.cancelAssignment)

	router.POST("/payments/callback", h.paymentCallback)
}

type createContractRequest struct {
	RequestID             string `json:"request_id" binding:"required"`
	CustomerID            string `json:"customer_id" binding:"required"`
	ContractType          string `json:"contract_type" binding:"required"`
	TotalPrice            int64  `json:"total_price"`
	Currency              string `json:"currency"`
	SLADays               int    `json:"sla_days" binding:"required"`
	DepositPercent        int    `json:"deposit_percent" binding:"required"`
	FreeRevisions         int    `json:"free_revisions"`
	AdditionalRevisionFee int64  `json:"additional_revision_fee"`
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID, err := uuid.Parse(strings.TrimSpace(req.RequestID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request_id"})
		return
	}
	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id"})
		return
	}
	contractType, ok := model.ParseContractType(strings.TrimSpace(req.ContractType))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract_type"})
		return
	}

	agg, err := h.workflow.CreateContract(c.Request.Context(), service.CreateContractInput{
		RequestID:             requestID,
		CustomerID:            customerID,
		ContractType:          contractType,
		TotalPrice:            req.TotalPrice,
		Currency:              strings.ToUpper(strings.TrimSpace(req.Currency)),
		SLADays:               req.SLADays,
		DepositPercent:        req.DepositPercent,
		FreeRevisions:         req.FreeRevisions,
		AdditionalRevisionFee: req.AdditionalRevisionFee,
		Principal:             principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contractResponseFrom(agg))
}

func (h *Handler) getContract(c *gin.Context) {
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	agg, err := h.workflow.GetContract(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contractResponseFrom(agg))
}

func (h *Handler) listEvents(c *gin.Context) {
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	events, err := h.workflow.Events(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": eventResponsesFrom(events)})
}

func (h *Handler) listInstallments(c *gin.Context) {
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	installments, err := h.workflow.Installments(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installments": installmentResponsesFrom(installments)})
}

func (h *Handler) startGate(c *gin.Context) {
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	gate, err := h.workflow.CanStartWork(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	resp := gin.H{"allowed": gate.Allowed, "warnings": uuidStrings(gate.Warnings)}
	if !gate.Allowed {
		resp["blocking_milestone_id"] = gate.BlockingMilestoneID.String()
	}
	c.JSON(http.StatusOK, resp)
}

type lifecycleVerbKind int

const (
	verbSend lifecycleVerbKind = iota
	verbApprove
	verbReturnToDraft
	verbStartWork
)

func (h *Handler) lifecycleVerb(kind lifecycleVerbKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
			return
		}
		contractID, ok := parseIDParam(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		var err error
		switch kind {
		case verbSend:
			err = h.workflow.Send(ctx, contractID, principal)
		case verbApprove:
			err = h.workflow.Approve(ctx, contractID, principal)
		case verbReturnToDraft:
			err = h.workflow.ReturnToDraft(ctx, contractID, principal)
		case verbStartWork:
			err = h.workflow.StartWork(ctx, contractID, principal)
		}
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) requestRevision(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.workflow.RequestRevision(c.Request.Context(), contractID, req.Reason, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) cancelContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.workflow.Cancel(c.Request.Context(), contractID, req.Reason, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type initSignSessionRequest struct {
	SignatureImage string `json:"signature_image"`
}

func (h *Handler) initSignSession(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req initSignSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, err := h.esign.InitSession(c.Request.Context(), contractID.String(), req.SignatureImage)
	if err != nil {
		h.log.Error().Err(err).Msg("init sign session failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "signature service unavailable"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id":   session.SessionID,
		"expires_at":   session.ExpiresAt,
		"max_attempts": session.MaxAttempts,
	})
}

type signContractRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Code      string `json:"code" binding:"required"`
}

// signContract verifies the OTP code with the e-sign service first; only a confirmed
// code reaches the engine's sign transaction.
func (h *Handler) signContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req signContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verified, err := h.esign.Verify(c.Request.Context(), req.SessionID, req.Code)
	if err != nil {
		h.log.Error().Err(err).Msg("otp verification failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "signature service unavailable"})
		return
	}
	if !verified {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "otp code rejected"})
		return
	}

	if err := h.workflow.Sign(c.Request.Context(), contractID, req.SessionID, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createAssignmentRequest struct {
	TaskType     string  `json:"task_type" binding:"required"`
	SpecialistID string  `json:"specialist_id" binding:"required"`
	Notes        *string `json:"notes"`
}

func (h *Handler) createAssignment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	milestoneID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	specialistID, err := uuid.Parse(strings.TrimSpace(req.SpecialistID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid specialist_id"})
		return
	}

	assignment, err := h.workflow.Assign(c.Request.Context(), service.AssignInput{
		MilestoneID:  milestoneID,
		TaskType:     model.TaskType(strings.TrimSpace(req.TaskType)),
		SpecialistID: specialistID,
		Notes:        req.Notes,
		Principal:    principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignmentResponseFrom(assignment))
}

type assignmentVerbKind int

const (
	verbAccept assignmentVerbKind = iota
	verbReady
	verbStartTask
	verbComplete
	verbResolveIssue
)

func (h *Handler) assignmentVerb(kind assignmentVerbKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
			return
		}
		assignmentID, ok := parseIDParam(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		var err error
		switch kind {
		case verbAccept:
			err = h.workflow.SpecialistAccept(ctx, assignmentID, principal)
		case verbReady:
			err = h.workflow.SpecialistReady(ctx, assignmentID, principal)
		case verbStartTask:
			err = h.workflow.StartTask(ctx, assignmentID, principal)
		case verbComplete:
			err = h.workflow.CompleteTask(ctx, assignmentID, principal)
		case verbResolveIssue:
			err = h.workflow.ResolveIssue(ctx, assignmentID, principal)
		}
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (h *Handler) reportIssue(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	assignmentID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.workflow.ReportIssue(c.Request.Context(), assignmentID, req.Reason, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) cancelAssignment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	assignmentID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req) // reason is optional
	if err := h.workflow.CancelAssignment(c.Request.Context(), assignmentID, req.Reason, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type paymentCallbackRequest struct {
	InstallmentID string `json:"installment_id" binding:"required"`
	PaidAt        string `json:"paid_at"`
}

// paymentCallback is the gateway's capture notification. Authenticated with the shared
// webhook secret; duplicate deliveries resolve to 409 via the ledger's idempotency.
func (h *Handler) paymentCallback(c *gin.Context) {
	if c.GetHeader("X-Webhook-Secret") != h.webhookSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	installmentID, err := uuid.Parse(strings.TrimSpace(req.InstallmentID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid installment_id"})
		return
	}
	var paidAt time.Time
	if req.PaidAt != "" {
		paidAt, err = time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paid_at"})
			return
		}
	}

	if err := h.workflow.MarkInstallmentPaid(c.Request.Context(), installmentID, paidAt); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) statementPDF(c *gin.Context) {
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	agg, err := h.workflow.GetContract(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	content, err := h.pdf.Generate(agg)
	if err != nil {
		h.log.Error().Err(err).Msg("statement pdf failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	fileName := "contract-" + agg.Contract.ContractNumber + ".pdf"
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/pdf", content)
}

func (h *Handler) scheduleXLSX(c *gin.Context) {
	contractID, ok := parseIDParam(c)
	if !ok {
		return
	}
	agg, err := h.workflow.GetContract(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	content, err := h.excel.Generate(agg)
	if err != nil {
		h.log.Error().Err(err).Msg("schedule export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	fileName := "schedule-" + agg.Contract.ContractNumber + ".xlsx"
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var gateErr *service.GateBlockedError
	switch {
	case errors.As(err, &gateErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":                 "start work blocked",
			"blocking_milestone_id": gateErr.MilestoneID.String(),
		})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrAlreadyTerminal),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrNoActiveIssue):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("workflow operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
