package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apppayplan "github.com/insurance/payplan/internal/application/payplan"
	"github.com/insurance/payplan/internal/domain/payplan"
	"github.com/insurance/payplan/internal/interfaces/http/dto"
	"github.com/insurance/payplan/internal/interfaces/http/middleware"
)

// ScheduleService is the reconciliation API the handler drives
type ScheduleService interface {
	GetOrCreateSchedule(ctx context.Context, subjectID uuid.UUID) (*apppayplan.ScheduleView, error)
	BeginEdit(ctx context.Context, subjectID uuid.UUID) (*apppayplan.ScheduleView, error)
	SaveSchedule(ctx context.Context, subjectID uuid.UUID, input apppayplan.SaveScheduleInput) (*apppayplan.ScheduleView, error)
	RecreateSchedule(ctx context.Context, subjectID uuid.UUID) (*apppayplan.ScheduleView, error)
	AddInstallment(ctx context.Context, subjectID uuid.UUID) (*payplan.Installment, error)
	RemoveInstallment(ctx context.Context, installmentID uuid.UUID) error
	ToggleInstallmentPaid(ctx context.Context, installmentID uuid.UUID) (*payplan.Installment, error)
	IsFullySettled(ctx context.Context, subjectID uuid.UUID) (bool, error)
	State(subjectID uuid.UUID) apppayplan.ScheduleState
}

// PayplanHandler exposes payment schedules over HTTP
type PayplanHandler struct {
	BaseHandler
	service ScheduleService
	now     func() time.Time
}

// PayplanHandlerOption configures a PayplanHandler
type PayplanHandlerOption func(*PayplanHandler)

// WithClock sets the clock used to resolve installment display status
func WithClock(now func() time.Time) PayplanHandlerOption {
	return func(h *PayplanHandler) {
		h.now = now
	}
}

// NewPayplanHandler creates a new PayplanHandler
func NewPayplanHandler(service ScheduleService, opts ...PayplanHandlerOption) *PayplanHandler {
	h := &PayplanHandler{service: service, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetSchedule godoc
// @ID           getPayplanSchedule
// @Summary      Get or create a subject's payment schedule
// @Tags         payplan
// @Produce      json
// @Param        subject_id path string true "Subject document ID" format(uuid)
// @Success      200 {object} APIResponse[apppayplan.ScheduleView]
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /payplan/subjects/{subject_id}/schedule [get]
func (h *PayplanHandler) GetSchedule(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	view, err := h.service.GetOrCreateSchedule(c.Request.Context(), subjectID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// BeginEdit godoc
// @ID           beginPayplanEdit
// @Summary      Open a schedule for editing
// @Tags         payplan
// @Produce      json
// @Param        subject_id path string true "Subject document ID" format(uuid)
// @Success      200 {object} APIResponse[apppayplan.ScheduleView]
// @Router       /payplan/subjects/{subject_id}/schedule/edit [post]
func (h *PayplanHandler) BeginEdit(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	view, err := h.service.BeginEdit(c.Request.Context(), subjectID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SaveSchedule godoc
// @ID           savePayplanSchedule
// @Summary      Save an edited schedule
// @Tags         payplan
// @Accept       json
// @Produce      json
// @Param        subject_id path string true "Subject document ID" format(uuid)
// @Param        request body apppayplan.SaveScheduleInput true "Edited schedule"
// @Success      200 {object} APIResponse[apppayplan.ScheduleView]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /payplan/subjects/{subject_id}/schedule [put]
func (h *PayplanHandler) SaveSchedule(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	var input apppayplan.SaveScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	view, err := h.service.SaveSchedule(c.Request.Context(), subjectID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// RecreateSchedule godoc
// @ID           recreatePayplanSchedule
// @Summary      Discard and regenerate a schedule
// @Description  Destructive. Requires confirm=true.
// @Tags         payplan
// @Produce      json
// @Param        subject_id path string true "Subject document ID" format(uuid)
// @Param        confirm query bool true "Must be true"
// @Success      200 {object} APIResponse[apppayplan.ScheduleView]
// @Failure      428 {object} ErrorResponse
// @Router       /payplan/subjects/{subject_id}/schedule/recreate [post]
func (h *PayplanHandler) RecreateSchedule(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	if !h.confirmed(c, "Recreating discards every edit; resend with confirm=true") {
		return
	}
	view, err := h.service.RecreateSchedule(c.Request.Context(), subjectID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// AddInstallment godoc
// @ID           addPayplanInstallment
// @Summary      Append an installment to a schedule
// @Tags         payplan
// @Produce      json
// @Param        subject_id path string true "Subject document ID" format(uuid)
// @Success      201 {object} APIResponse[apppayplan.InstallmentView]
// @Router       /payplan/subjects/{subject_id}/installments [post]
func (h *PayplanHandler) AddInstallment(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	inst, err := h.service.AddInstallment(c.Request.Context(), subjectID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, apppayplan.ToInstallmentView(inst, h.now()))
}

// RemoveInstallment godoc
// @ID           removePayplanInstallment
// @Summary      Delete an installment
// @Description  Destructive. Requires confirm=true. The last installment cannot be removed.
// @Tags         payplan
// @Param        id path string true "Installment ID" format(uuid)
// @Param        confirm query bool true "Must be true"
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Router       /payplan/installments/{id} [delete]
func (h *PayplanHandler) RemoveInstallment(c *gin.Context) {
	installmentID, ok := h.installmentID(c)
	if !ok {
		return
	}
	if !h.confirmed(c, "Removing an installment cannot be undone; resend with confirm=true") {
		return
	}
	if err := h.service.RemoveInstallment(c.Request.Context(), installmentID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// TogglePaid godoc
// @ID           togglePayplanInstallmentPaid
// @Summary      Flip an installment between paid and pending
// @Description  On a store failure the error envelope also carries the installment as it was before the toggle.
// @Tags         payplan
// @Produce      json
// @Param        id path string true "Installment ID" format(uuid)
// @Success      200 {object} APIResponse[apppayplan.InstallmentView]
// @Failure      503 {object} ErrorResponse
// @Router       /payplan/installments/{id}/toggle-paid [post]
func (h *PayplanHandler) TogglePaid(c *gin.Context) {
	installmentID, ok := h.installmentID(c)
	if !ok {
		return
	}
	inst, err := h.service.ToggleInstallmentPaid(c.Request.Context(), installmentID)
	if err != nil {
		var restored any
		if inst != nil {
			restored = apppayplan.ToInstallmentView(inst, h.now())
		}
		h.HandleErrorWithData(c, err, restored)
		return
	}
	h.Success(c, apppayplan.ToInstallmentView(inst, h.now()))
}

// GetSettlement godoc
// @ID           getPayplanSettlement
// @Summary      Whether a subject's payment plan is fully paid
// @Tags         payplan
// @Produce      json
// @Param        subject_id path string true "Subject document ID" format(uuid)
// @Success      200 {object} APIResponse[apppayplan.SettlementView]
// @Router       /payplan/subjects/{subject_id}/settlement [get]
func (h *PayplanHandler) GetSettlement(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	settled, err := h.service.IsFullySettled(c.Request.Context(), subjectID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apppayplan.SettlementView{SubjectID: subjectID, FullySettled: settled})
}

// GetState godoc
// @ID           getPayplanState
// @Summary      Last known schedule state of a subject in this instance
// @Tags         payplan
// @Produce      json
// @Param        subject_id path string true "Subject document ID" format(uuid)
// @Success      200 {object} APIResponse[apppayplan.StateView]
// @Router       /payplan/subjects/{subject_id}/state [get]
func (h *PayplanHandler) GetState(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	h.Success(c, apppayplan.StateView{SubjectID: subjectID, State: h.service.State(subjectID)})
}

func (h *PayplanHandler) subjectID(c *gin.Context) (uuid.UUID, bool) {
	var uri dto.SubjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(uri.SubjectID), true
}

func (h *PayplanHandler) installmentID(c *gin.Context) (uuid.UUID, bool) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(uri.ID), true
}

func (h *PayplanHandler) confirmed(c *gin.Context, message string) bool {
	var q dto.ConfirmQuery
	if err := c.ShouldBindQuery(&q); err != nil || !q.Confirm {
		h.ConfirmationRequired(c, message)
		return false
	}
	return true
}
