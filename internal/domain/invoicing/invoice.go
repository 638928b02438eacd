package invoicing

import (
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"   // Unpaid, due date not passed
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Remaining amount <= 0
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"   // Unpaid and past due date
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Externally set, never derived
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status blocks further status derivation.
// Cancelled is the only terminal status: a cancelled invoice keeps its
// status regardless of payments or due date.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusCancelled
}

// MaxInvoiceAmount is the upper bound on an invoice's face amount,
// enforced at creation only.
var MaxInvoiceAmount = decimal.NewFromInt(100)

// Invoice represents an invoice aggregate root. It owns its payments,
// late fees and reminders; those collections are loaded by the
// repository and passed explicitly to the derivation methods, which
// also take an explicit "now" so results are reproducible.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	Status        InvoiceStatus   `json:"status"`

	// Loaded associations (populated by FindByIDWithDetails)
	Payments  []Payment `json:"payments,omitempty" gorm:"-"`
	LateFees  []LateFee `json:"late_fees,omitempty" gorm:"-"`
	Reminders []Reminder `json:"reminders,omitempty" gorm:"-"`
}

// NewInvoice creates a new invoice. The face amount must be positive
// and no greater than MaxInvoiceAmount. The initial status is always
// Pending, even when the due date is already in the past; the next
// status recomputation will move it to Overdue.
func NewInvoice(invoiceNumber, customerName, description string, amount valueobject.Money, dueDate, now time.Time) (*Invoice, error) {
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if !amount.Amount().IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if amount.Amount().GreaterThan(MaxInvoiceAmount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount cannot exceed 100")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		InvoiceNumber:     invoiceNumber,
		CustomerName:      customerName,
		Description:       description,
		Amount:            amount.Amount(),
		DueDate:           dueDate,
		Status:            InvoiceStatusPending,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv, now))

	return inv, nil
}

// RemainingAmount returns the face amount minus the sum of the given
// payments. Negative values are permitted (overpayment) and never
// clamped.
func (i *Invoice) RemainingAmount(payments []Payment) decimal.Decimal {
	remaining := i.Amount
	for _, p := range payments {
		remaining = remaining.Sub(p.Amount)
	}
	return remaining
}

// IsPaid returns true when the remaining amount is zero or negative
func (i *Invoice) IsPaid(payments []Payment) bool {
	return i.RemainingAmount(payments).LessThanOrEqual(decimal.Zero)
}

// IsOverdue returns true when the due date is strictly before now and
// the invoice is not fully paid.
func (i *Invoice) IsOverdue(payments []Payment, now time.Time) bool {
	return i.DueDate.Before(now) && !i.IsPaid(payments)
}

// DaysOverdue returns the number of calendar days between the due date
// and asOf, ignoring the time of day on either side. Zero or negative
// when the due date has not passed.
func (i *Invoice) DaysOverdue(asOf time.Time) int {
	delta := dateOf(asOf).Sub(dateOf(i.DueDate))
	return int(delta.Round(24*time.Hour) / (24 * time.Hour))
}

// DeriveStatus computes the status an invoice should have given its
// payments and the current instant. Priority is Paid > Overdue >
// Pending. A cancelled invoice always stays cancelled.
func DeriveStatus(inv *Invoice, payments []Payment, now time.Time) InvoiceStatus {
	if inv.Status.IsTerminal() {
		return inv.Status
	}
	if inv.IsPaid(payments) {
		return InvoiceStatusPaid
	}
	if inv.IsOverdue(payments, now) {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusPending
}

// RecomputeStatus reassigns the status from DeriveStatus. It is a
// no-op on a cancelled invoice.
func (i *Invoice) RecomputeStatus(payments []Payment, now time.Time) {
	if i.Status.IsTerminal() {
		return
	}
	derived := DeriveStatus(i, payments, now)
	if derived != i.Status {
		i.Status = derived
		i.UpdatedAt = now
	}
}

// UpdateDetails changes the mutable invoice fields. Rejected when the
// invoice is cancelled.
func (i *Invoice) UpdateDetails(customerName, description string, dueDate, now time.Time) error {
	if i.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot update a cancelled invoice")
	}
	if customerName == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if dueDate.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}

	i.CustomerName = customerName
	i.Description = description
	i.DueDate = dueDate
	i.UpdatedAt = now
	i.IncrementVersion()

	return nil
}

// Cancel marks the invoice as cancelled. Cancelling an already
// cancelled invoice is a no-op.
func (i *Invoice) Cancel(now time.Time) {
	if i.Status == InvoiceStatusCancelled {
		return
	}
	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = now
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceCancelledEvent(i, now))
}

// dateOf truncates an instant to its calendar date, preserving location
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// sameDate reports whether two instants fall on the same calendar date
func sameDate(a, b time.Time) bool {
	return dateOf(a).Equal(dateOf(b))
}
