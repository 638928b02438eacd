package handler

import (
	"github.com/gin-gonic/gin"

	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

// ReminderHandler handles reminder API endpoints
type ReminderHandler struct {
	BaseHandler
	reminderService *invoicingapp.ReminderService
}

// NewReminderHandler creates a new ReminderHandler
func NewReminderHandler(reminderService *invoicingapp.ReminderService) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
	}
}

// SendReminderRequest represents a request to record a reminder
// @Description Request body for recording a payment reminder for an invoice
type SendReminderRequest struct {
	Type    string `json:"type" binding:"required,oneof=BEFORE_DUE ON_DUE_DATE AFTER_DUE" example:"BEFORE_DUE"`
	Message string `json:"message" binding:"max=500" example:"Invoice INV-2026-001 is due in 3 days"`
}

// ListByInvoice godoc
// @Summary      List reminders for an invoice
// @Description  Retrieve all reminders recorded for an invoice
// @Tags         reminders
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]dto.ReminderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/reminders [get]
func (h *ReminderHandler) ListByInvoice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	reminders, err := h.reminderService.ListByInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToReminderResponses(reminders))
}

// Send godoc
// @Summary      Send a reminder
// @Description  Record a payment reminder for an invoice, at most one per type per day
// @Tags         reminders
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body SendReminderRequest true "Reminder request"
// @Success      201 {object} dto.Response{data=dto.ReminderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/reminders [post]
func (h *ReminderHandler) Send(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req SendReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reminder, err := h.reminderService.Send(c.Request.Context(), invoicingapp.SendReminderRequest{
		InvoiceID: id,
		Type:      invoicing.ReminderType(req.Type),
		Message:   req.Message,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.ToReminderResponse(reminder))
}

// RegisterRoutes registers reminder routes on the given router group
func (h *ReminderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reminders := rg.Group("/invoices/:id/reminders")
	{
		reminders.GET("", h.ListByInvoice)
		reminders.POST("", h.Send)
	}
}
