package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *invoicingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *invoicingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// CreateInvoiceRequest represents a request to create a new invoice
// @Description Request body for creating a new invoice
type CreateInvoiceRequest struct {
	InvoiceNumber string  `json:"invoice_number" binding:"required,min=1,max=50" example:"INV-2026-001"`
	CustomerName  string  `json:"customer_name" binding:"required,min=1,max=200" example:"Acme Corp"`
	Description   string  `json:"description" binding:"max=2000" example:"Consulting services, March"`
	Amount        float64 `json:"amount" binding:"required,gt=0" example:"85.00"`
	DueDate       string  `json:"due_date" binding:"required" example:"2026-04-30T00:00:00Z"`
}

// UpdateInvoiceRequest represents a request to update an invoice
// @Description Request body for updating an invoice
type UpdateInvoiceRequest struct {
	CustomerName string `json:"customer_name" binding:"required,min=1,max=200" example:"Acme Corp"`
	Description  string `json:"description" binding:"max=2000" example:"Consulting services, March"`
	DueDate      string `json:"due_date" binding:"required" example:"2026-05-15T00:00:00Z"`
}

// RemainingAmountResponse reports the unpaid balance of an invoice
type RemainingAmountResponse struct {
	InvoiceID       string `json:"invoice_id"`
	RemainingAmount string `json:"remaining_amount" example:"40.00"`
}

// PaidStatusResponse reports whether an invoice is fully paid
type PaidStatusResponse struct {
	InvoiceID string `json:"invoice_id"`
	IsPaid    bool   `json:"is_paid"`
}

// OverdueStatusResponse reports whether an invoice is overdue
type OverdueStatusResponse struct {
	InvoiceID string `json:"invoice_id"`
	IsOverdue bool   `json:"is_overdue"`
}

// List godoc
// @Summary      List invoices
// @Description  Retrieve a paginated list of invoices
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        search query string false "Search term (invoice number, customer name)"
// @Param        status query string false "Invoice status" Enums(PENDING, PAID, OVERDUE, CANCELLED)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]dto.InvoiceResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if status := c.Query("status"); status != "" {
		filter.Filters = map[string]interface{}{"status": status}
	}

	page, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.ToInvoiceResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// GetByID godoc
// @Summary      Get invoice by ID
// @Description  Retrieve an invoice by its ID
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=dto.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToInvoiceResponse(inv))
}

// GetDetails godoc
// @Summary      Get invoice with details
// @Description  Retrieve an invoice including its payments, late fees, and reminders
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=dto.InvoiceDetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/details [get]
func (h *InvoiceHandler) GetDetails(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.GetWithDetails(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToInvoiceDetailResponse(inv))
}

// Create godoc
// @Summary      Create a new invoice
// @Description  Create a new invoice with a unique invoice number
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body CreateInvoiceRequest true "Invoice creation request"
// @Success      201 {object} dto.Response{data=dto.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		h.BadRequest(c, "Invalid due_date format, expected RFC 3339")
		return
	}

	inv, err := h.invoiceService.Create(c.Request.Context(), invoicingapp.CreateInvoiceRequest{
		InvoiceNumber: req.InvoiceNumber,
		CustomerName:  req.CustomerName,
		Description:   req.Description,
		Amount:        toDecimal(req.Amount),
		DueDate:       dueDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.ToInvoiceResponse(inv))
}

// Update godoc
// @Summary      Update an invoice
// @Description  Update an invoice's customer name, description, and due date
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body UpdateInvoiceRequest true "Invoice update request"
// @Success      200 {object} dto.Response{data=dto.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		h.BadRequest(c, "Invalid due_date format, expected RFC 3339")
		return
	}

	inv, err := h.invoiceService.Update(c.Request.Context(), id, invoicingapp.UpdateInvoiceRequest{
		CustomerName: req.CustomerName,
		Description:  req.Description,
		DueDate:      dueDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToInvoiceResponse(inv))
}

// Cancel godoc
// @Summary      Cancel an invoice
// @Description  Cancel an invoice that has no recorded payments
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=dto.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.Cancel(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToInvoiceResponse(inv))
}

// Delete godoc
// @Summary      Delete an invoice
// @Description  Delete an invoice and all of its payments, late fees, and reminders
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RemainingAmount godoc
// @Summary      Get remaining amount
// @Description  Compute the unpaid balance of an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=RemainingAmountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/remaining-amount [get]
func (h *InvoiceHandler) RemainingAmount(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	remaining, err := h.invoiceService.RemainingAmount(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RemainingAmountResponse{
		InvoiceID:       id.String(),
		RemainingAmount: remaining.StringFixed(2),
	})
}

// IsPaid godoc
// @Summary      Check paid status
// @Description  Report whether an invoice is fully paid
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=PaidStatusResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/is-paid [get]
func (h *InvoiceHandler) IsPaid(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	paid, err := h.invoiceService.IsPaid(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, PaidStatusResponse{InvoiceID: id.String(), IsPaid: paid})
}

// IsOverdue godoc
// @Summary      Check overdue status
// @Description  Report whether an invoice is past due and not fully paid
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=OverdueStatusResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/is-overdue [get]
func (h *InvoiceHandler) IsOverdue(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	overdue, err := h.invoiceService.IsOverdue(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, OverdueStatusResponse{InvoiceID: id.String(), IsOverdue: overdue})
}

// RegisterRoutes registers invoice routes on the given router group
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.GET("", h.List)
		invoices.POST("", h.Create)
		invoices.GET("/:id", h.GetByID)
		invoices.PUT("/:id", h.Update)
		invoices.DELETE("/:id", h.Delete)
		invoices.GET("/:id/details", h.GetDetails)
		invoices.POST("/:id/cancel", h.Cancel)
		invoices.GET("/:id/remaining-amount", h.RemainingAmount)
		invoices.GET("/:id/is-paid", h.IsPaid)
		invoices.GET("/:id/is-overdue", h.IsOverdue)
	}
}
