package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

// parseIDParam binds and validates the :id path parameter
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// toDecimal converts a float64 to a decimal.Decimal
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
