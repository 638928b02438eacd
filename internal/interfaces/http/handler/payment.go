package handler

import (
	"github.com/gin-gonic/gin"

	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *invoicingapp.PaymentService
	idempotency    gin.HandlerFunc
}

// NewPaymentHandler creates a new PaymentHandler. The idempotency
// middleware guards payment recording and may be nil.
func NewPaymentHandler(paymentService *invoicingapp.PaymentService, idempotency gin.HandlerFunc) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		idempotency:    idempotency,
	}
}

// RecordPaymentRequest represents a request to record a payment
// @Description Request body for recording a payment against an invoice
type RecordPaymentRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0" example:"40.00"`
	Method    string  `json:"method" binding:"max=50" example:"BANK_TRANSFER"`
	Reference string  `json:"reference" binding:"max=100" example:"TXN-8842"`
}

// UpdatePaymentRequest represents a request to update a payment
// @Description Request body for updating a recorded payment
type UpdatePaymentRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0" example:"35.00"`
	Method    string  `json:"method" binding:"max=50" example:"BANK_TRANSFER"`
	Reference string  `json:"reference" binding:"max=100" example:"TXN-8842"`
}

// TotalPaymentsResponse reports the sum of payments for an invoice
type TotalPaymentsResponse struct {
	InvoiceID string `json:"invoice_id"`
	Total     string `json:"total" example:"75.00"`
}

// ListByInvoice godoc
// @Summary      List payments for an invoice
// @Description  Retrieve all payments recorded against an invoice
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]dto.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/payments [get]
func (h *PaymentHandler) ListByInvoice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	payments, err := h.paymentService.ListByInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToPaymentResponses(payments))
}

// Record godoc
// @Summary      Record a payment
// @Description  Record a payment against an invoice and recompute its status
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Idempotency key for safe retries"
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body RecordPaymentRequest true "Payment recording request"
// @Success      201 {object} dto.Response{data=dto.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.RecordPayment(c.Request.Context(), invoicingapp.RecordPaymentRequest{
		InvoiceID: id,
		Amount:    toDecimal(req.Amount),
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.ToPaymentResponse(payment))
}

// Total godoc
// @Summary      Get total payments
// @Description  Compute the sum of all payments recorded against an invoice
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=TotalPaymentsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/payments/total [get]
func (h *PaymentHandler) Total(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	total, err := h.paymentService.TotalPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, TotalPaymentsResponse{InvoiceID: id.String(), Total: total.StringFixed(2)})
}

// GetByID godoc
// @Summary      Get payment by ID
// @Description  Retrieve a single payment by its ID
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=dto.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToPaymentResponse(payment))
}

// Update godoc
// @Summary      Update a payment
// @Description  Update a recorded payment and recompute the invoice status
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body UpdatePaymentRequest true "Payment update request"
// @Success      200 {object} dto.Response{data=dto.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.UpdatePayment(c.Request.Context(), id, invoicingapp.UpdatePaymentRequest{
		Amount:    toDecimal(req.Amount),
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToPaymentResponse(payment))
}

// Delete godoc
// @Summary      Delete a payment
// @Description  Delete a recorded payment and recompute the invoice status
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	if err := h.paymentService.DeletePayment(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers payment routes on the given router group
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices/:id/payments")
	{
		invoices.GET("", h.ListByInvoice)
		invoices.GET("/total", h.Total)
		if h.idempotency != nil {
			invoices.POST("", h.idempotency, h.Record)
		} else {
			invoices.POST("", h.Record)
		}
	}

	payments := rg.Group("/payments")
	{
		payments.GET("/:id", h.GetByID)
		payments.PUT("/:id", h.Update)
		payments.DELETE("/:id", h.Delete)
	}
}
