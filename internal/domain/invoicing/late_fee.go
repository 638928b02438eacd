package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LateFee represents a late fee assessed against an overdue invoice.
// Fee amounts are tracked separately from the invoice balance and do
// not feed back into RemainingAmount.
type LateFee struct {
	shared.BaseEntity
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	AppliedDate time.Time       `json:"applied_date"`
	Description string          `json:"description,omitempty"`
}

// NewLateFee creates a new late fee with the applied date set to the
// assessment instant.
func NewLateFee(invoiceID uuid.UUID, amount decimal.Decimal, description string, now time.Time) (*LateFee, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE_ID", "Invoice ID cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Late fee amount cannot be negative")
	}

	return &LateFee{
		BaseEntity:  shared.NewBaseEntity(now),
		InvoiceID:   invoiceID,
		Amount:      amount,
		AppliedDate: now,
		Description: description,
	}, nil
}

// CalculateLateFee computes the late fee for an invoice. The fee is
// zero when the invoice is not overdue at the evaluation instant, or
// when asOf does not fall on a later calendar date than the due date.
// Time of day never affects the day-zero boundary. Otherwise the fee
// is the remaining amount times the percentage, rounded to two decimal
// places half away from zero.
func CalculateLateFee(inv *Invoice, payments []Payment, now, asOf time.Time, feePercentage decimal.Decimal) decimal.Decimal {
	if !inv.IsOverdue(payments, now) {
		return decimal.Zero
	}
	if !dateOf(asOf).After(dateOf(inv.DueDate)) {
		return decimal.Zero
	}
	return inv.RemainingAmount(payments).
		Mul(feePercentage).
		Div(decimal.NewFromInt(100)).
		Round(2)
}

// FeeAppliedOn reports whether any of the fees was applied on the
// calendar date of the given instant.
func FeeAppliedOn(fees []LateFee, day time.Time) bool {
	for _, f := range fees {
		if sameDate(f.AppliedDate, day) {
			return true
		}
	}
	return false
}

// EligibleForLateFee reports whether the invoice qualifies for a fee
// assessment: currently overdue with no fee already applied today.
func EligibleForLateFee(inv *Invoice, payments []Payment, fees []LateFee, now time.Time) bool {
	return inv.IsOverdue(payments, now) && !FeeAppliedOn(fees, now)
}
