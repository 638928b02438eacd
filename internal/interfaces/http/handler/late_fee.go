package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/clock"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

// LateFeeHandler handles late fee API endpoints
type LateFeeHandler struct {
	BaseHandler
	lateFeeService *invoicingapp.LateFeeService
	clock          clock.Clock
}

// NewLateFeeHandler creates a new LateFeeHandler
func NewLateFeeHandler(lateFeeService *invoicingapp.LateFeeService, clk clock.Clock) *LateFeeHandler {
	if clk == nil {
		clk = &clock.SystemClock{}
	}
	return &LateFeeHandler{
		lateFeeService: lateFeeService,
		clock:          clk,
	}
}

// ApplyLateFeeRequest represents a request to assess a late fee
// @Description Request body for assessing a late fee against an overdue invoice
type ApplyLateFeeRequest struct {
	FeePercentage float64 `json:"fee_percentage" binding:"required,gt=0,lte=100" example:"5"`
	Description   string  `json:"description" binding:"max=500" example:"Late fee for overdue balance"`
}

// CalculatedFeeResponse reports a computed late fee without applying it
type CalculatedFeeResponse struct {
	InvoiceID     string `json:"invoice_id"`
	FeePercentage string `json:"fee_percentage" example:"5"`
	Amount        string `json:"amount" example:"4.25"`
	AsOf          string `json:"as_of" example:"2026-05-01T00:00:00Z"`
}

// ListByInvoice godoc
// @Summary      List late fees for an invoice
// @Description  Retrieve all late fees assessed against an invoice
// @Tags         late-fees
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]dto.LateFeeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/late-fees [get]
func (h *LateFeeHandler) ListByInvoice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	fees, err := h.lateFeeService.ListByInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToLateFeeResponses(fees))
}

// Calculate godoc
// @Summary      Calculate a late fee
// @Description  Compute the late fee an overdue invoice would incur without applying it
// @Tags         late-fees
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        fee_percentage query number true "Fee percentage of the remaining balance" example(5)
// @Param        as_of query string false "Reference date, RFC 3339 (defaults to now)"
// @Success      200 {object} dto.Response{data=CalculatedFeeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/late-fees/calculate [get]
func (h *LateFeeHandler) Calculate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var query struct {
		FeePercentage float64 `form:"fee_percentage" binding:"required,gt=0,lte=100"`
		AsOf          string  `form:"as_of"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	asOf := h.clock.Now()
	if query.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, query.AsOf)
		if err != nil {
			h.BadRequest(c, "Invalid as_of format, expected RFC 3339")
			return
		}
		asOf = parsed
	}

	pct := toDecimal(query.FeePercentage)
	amount, err := h.lateFeeService.Calculate(c.Request.Context(), id, asOf, pct)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CalculatedFeeResponse{
		InvoiceID:     id.String(),
		FeePercentage: pct.String(),
		Amount:        amount.StringFixed(2),
		AsOf:          asOf.Format(time.RFC3339),
	})
}

// Apply godoc
// @Summary      Assess a late fee
// @Description  Assess a late fee against an overdue invoice, at most one per day
// @Tags         late-fees
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body ApplyLateFeeRequest true "Late fee assessment request"
// @Success      201 {object} dto.Response{data=dto.LateFeeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/late-fees [post]
func (h *LateFeeHandler) Apply(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req ApplyLateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	fee, err := h.lateFeeService.Apply(c.Request.Context(), invoicingapp.ApplyLateFeeRequest{
		InvoiceID:     id,
		FeePercentage: toDecimal(req.FeePercentage),
		Description:   req.Description,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.ToLateFeeResponse(fee))
}

// RegisterRoutes registers late fee routes on the given router group
func (h *LateFeeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	fees := rg.Group("/invoices/:id/late-fees")
	{
		fees.GET("", h.ListByInvoice)
		fees.POST("", h.Apply)
		fees.GET("/calculate", h.Calculate)
	}
}
