package handler

import (
	"github.com/gin-gonic/gin"

	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

// BillingHandler exposes the automated billing pass over HTTP: listing
// the invoices the next run would touch and triggering a run on demand.
type BillingHandler struct {
	BaseHandler
	lateFeeService  *invoicingapp.LateFeeService
	reminderService *invoicingapp.ReminderService
	billingRun      *invoicingapp.BillingRunService
	config          invoicingapp.BillingRunConfig
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(
	lateFeeService *invoicingapp.LateFeeService,
	reminderService *invoicingapp.ReminderService,
	billingRun *invoicingapp.BillingRunService,
	config invoicingapp.BillingRunConfig,
) *BillingHandler {
	return &BillingHandler{
		lateFeeService:  lateFeeService,
		reminderService: reminderService,
		billingRun:      billingRun,
		config:          config,
	}
}

// InvoicesNeedingFees godoc
// @Summary      List invoices eligible for late fees
// @Description  Retrieve the overdue invoices that would be assessed a late fee today
// @Tags         billing
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=[]dto.InvoiceResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices-needing-fees [get]
func (h *BillingHandler) InvoicesNeedingFees(c *gin.Context) {
	invoices, err := h.lateFeeService.InvoicesEligible(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToInvoiceResponses(invoices))
}

// InvoicesNeedingReminders godoc
// @Summary      List invoices needing reminders
// @Description  Retrieve the invoices that qualify for a reminder today, with the reminder types each needs
// @Tags         billing
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=[]dto.ReminderCandidateResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices-needing-reminders [get]
func (h *BillingHandler) InvoicesNeedingReminders(c *gin.Context) {
	candidates, err := h.reminderService.InvoicesNeeding(c.Request.Context(), h.config.DaysBefore, h.config.DaysAfter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]dto.ReminderCandidateResponse, 0, len(candidates))
	for i := range candidates {
		needed := make([]string, 0, len(candidates[i].Needed))
		for _, t := range candidates[i].Needed {
			needed = append(needed, string(t))
		}
		out = append(out, dto.ReminderCandidateResponse{
			Invoice: dto.ToInvoiceResponse(&candidates[i].Invoice),
			Needed:  needed,
		})
	}

	h.Success(c, out)
}

// Run godoc
// @Summary      Run the billing pass
// @Description  Assess late fees and send reminders for all qualifying invoices now
// @Tags         billing
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=invoicingapp.BillingRunSummary}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/run [post]
func (h *BillingHandler) Run(c *gin.Context) {
	summary, err := h.billingRun.RunDaily(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// RegisterRoutes registers billing routes on the given router group
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	billing := rg.Group("/billing")
	{
		billing.GET("/invoices-needing-fees", h.InvoicesNeedingFees)
		billing.GET("/invoices-needing-reminders", h.InvoicesNeedingReminders)
		billing.POST("/run", h.Run)
	}
}
