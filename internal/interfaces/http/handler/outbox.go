package handler

import (
	"github.com/gin-gonic/gin"

	eventapp "github.com/invoicing/backend/internal/application/event"
)

// OutboxHandler exposes operator endpoints for the transactional outbox:
// delivery statistics and dead letter inspection and requeueing.
type OutboxHandler struct {
	BaseHandler
	outboxService *eventapp.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outboxService *eventapp.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// RetriedCountResponse reports how many dead letter entries were requeued
type RetriedCountResponse struct {
	Retried int64 `json:"retried" example:"3"`
}

// GetStats godoc
// @Summary      Get outbox statistics
// @Description  Count outbox entries per delivery state
// @Tags         outbox
// @Produce      json
// @Success      200 {object} dto.Response{data=eventapp.OutboxStatsDTO}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outboxService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// ListDeadLetters godoc
// @Summary      List dead letter entries
// @Description  Page through outbox entries that exhausted their delivery retries
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=eventapp.OutboxListResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /system/outbox/dead-letters [get]
func (h *OutboxHandler) ListDeadLetters(c *gin.Context) {
	var filter eventapp.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.outboxService.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetEntry godoc
// @Summary      Get an outbox entry
// @Description  Retrieve a single outbox entry by ID
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=eventapp.OutboxEntryDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /system/outbox/entries/{id} [get]
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	entry, err := h.outboxService.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryDeadLetter godoc
// @Summary      Retry a dead letter entry
// @Description  Requeue a dead letter entry for delivery with a fresh retry budget
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=eventapp.OutboxEntryDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /system/outbox/dead-letters/{id}/retry [post]
func (h *OutboxHandler) RetryDeadLetter(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	entry, err := h.outboxService.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryAllDeadLetters godoc
// @Summary      Retry all dead letter entries
// @Description  Requeue every dead letter entry for delivery
// @Tags         outbox
// @Produce      json
// @Success      200 {object} dto.Response{data=RetriedCountResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /system/outbox/dead-letters/retry [post]
func (h *OutboxHandler) RetryAllDeadLetters(c *gin.Context) {
	count, err := h.outboxService.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RetriedCountResponse{Retried: count})
}

// RegisterRoutes registers outbox routes on the given router group
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	outbox := rg.Group("/system/outbox")
	{
		outbox.GET("/stats", h.GetStats)
		outbox.GET("/entries/:id", h.GetEntry)
		outbox.GET("/dead-letters", h.ListDeadLetters)
		outbox.POST("/dead-letters/retry", h.RetryAllDeadLetters)
		outbox.POST("/dead-letters/:id/retry", h.RetryDeadLetter)
	}
}
