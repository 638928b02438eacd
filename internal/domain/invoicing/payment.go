package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Payment represents a payment recorded against an invoice. Payments
// reference their invoice by ID; they are created independently and
// cascade-deleted with the invoice.
type Payment struct {
	shared.BaseEntity
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      string          `json:"method,omitempty"`
	Reference   string          `json:"reference,omitempty"`
}

// NewPayment creates a new payment. The payment date is always the
// recording instant; callers cannot supply their own.
func NewPayment(invoiceID uuid.UUID, amount valueobject.Money, method, reference string, now time.Time) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE_ID", "Invoice ID cannot be empty")
	}
	if !amount.Amount().IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	return &Payment{
		BaseEntity:  shared.NewBaseEntity(now),
		InvoiceID:   invoiceID,
		Amount:      amount.Amount(),
		PaymentDate: now,
		Method:      method,
		Reference:   reference,
	}, nil
}

// Update changes the mutable payment fields
func (p *Payment) Update(amount valueobject.Money, method, reference string, now time.Time) error {
	if !amount.Amount().IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	p.Amount = amount.Amount()
	p.Method = method
	p.Reference = reference
	p.UpdatedAt = now

	return nil
}

// TotalPayments sums the amounts of the given payments; zero if none
func TotalPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
