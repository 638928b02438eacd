package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
)

// InvoiceRepository defines the persistence operations for invoices
type InvoiceRepository interface {
	// FindByID finds an invoice by ID without associations
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDWithDetails finds an invoice with payments, late fees
	// and reminders loaded
	FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its invoice number
	FindByNumber(ctx context.Context, number string) (*Invoice, error)

	// FindAll finds all invoices with pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, int64, error)

	// FindOverdue finds invoices whose due date is before the given
	// instant and whose status is not PAID, with payments loaded,
	// ordered by ID ascending
	FindOverdue(ctx context.Context, now time.Time) ([]Invoice, error)

	// FindDueWithin finds unpaid invoices due between the given
	// instant's date and days from it (inclusive), with payments
	// loaded, ordered by ID ascending
	FindDueWithin(ctx context.Context, now time.Time, days int) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock updates an invoice using optimistic locking on the
	// version column
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Delete removes an invoice and cascades to its payments, late
	// fees and reminders
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository defines the persistence operations for payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
	Save(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LateFeeRepository defines the persistence operations for late fees
type LateFeeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*LateFee, error)
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]LateFee, error)
	Save(ctx context.Context, fee *LateFee) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReminderRepository defines the persistence operations for reminders
type ReminderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]Reminder, error)
	Save(ctx context.Context, reminder *Reminder) error
	Delete(ctx context.Context, id uuid.UUID) error
}
