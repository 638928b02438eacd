package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/clock"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// InvoiceService handles invoice lifecycle operations
type InvoiceService struct {
	invoiceRepo invoicing.InvoiceRepository
	paymentRepo invoicing.PaymentRepository
	locker      *InvoiceLocker
	clock       clock.Clock
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo invoicing.InvoiceRepository,
	paymentRepo invoicing.PaymentRepository,
	locker *InvoiceLocker,
	clk clock.Clock,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		locker:      locker,
		clock:       clk,
	}
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	InvoiceNumber string
	CustomerName  string
	Description   string
	Amount        decimal.Decimal
	DueDate       time.Time
}

// UpdateInvoiceRequest represents a request to update an invoice
type UpdateInvoiceRequest struct {
	CustomerName string
	Description  string
	DueDate      time.Time
}

// List returns invoices with pagination
func (s *InvoiceService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[invoicing.Invoice], error) {
	invoices, total, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	result := shared.NewPaginated(invoices, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Get returns an invoice by ID without associations
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// GetWithDetails returns an invoice with payments, late fees and
// reminders loaded
func (s *InvoiceService) GetWithDetails(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice details: %w", err)
	}
	return invoice, nil
}

// Create validates and persists a new invoice
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*invoicing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()

	if _, err := s.invoiceRepo.FindByNumber(ctx, req.InvoiceNumber); err == nil {
		return nil, shared.ErrAlreadyExists
	} else if !errors.Is(err, shared.ErrNotFound) {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check invoice number: %w", err)
	}

	now := s.clock.Now()
	invoice, err := invoicing.NewInvoice(req.InvoiceNumber, req.CustomerName, req.Description, valueobject.NewMoney(req.Amount), req.DueDate, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, invoice.ID.String())
	telemetry.RecordInvoiceCreated(ctx, invoice.Amount)
	telemetry.SetOK(span)

	return invoice, nil
}

// Update changes an invoice's mutable fields under the per-invoice lock
func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*invoicing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update")
	defer span.End()

	unlock := s.locker.Lock(id)
	defer unlock()

	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if err := invoice.UpdateDetails(req.CustomerName, req.Description, req.DueDate, s.clock.Now()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	telemetry.SetOK(span)
	return invoice, nil
}

// Cancel marks an invoice as cancelled. Cancelling an already
// cancelled invoice succeeds without another write.
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "cancel")
	defer span.End()

	unlock := s.locker.Lock(id)
	defer unlock()

	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status == invoicing.InvoiceStatusCancelled {
		return invoice, nil
	}

	invoice.Cancel(s.clock.Now())

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	telemetry.SetOK(span)
	return invoice, nil
}

// Delete removes an invoice together with its payments, late fees and
// reminders
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "delete")
	defer span.End()

	unlock := s.locker.Lock(id)
	defer unlock()

	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	telemetry.SetOK(span)
	return nil
}

// RemainingAmount returns the invoice's face amount minus all payments
func (s *InvoiceService) RemainingAmount(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	invoice, payments, err := s.loadWithPayments(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return invoice.RemainingAmount(payments), nil
}

// IsPaid reports whether the invoice is fully paid
func (s *InvoiceService) IsPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	invoice, payments, err := s.loadWithPayments(ctx, id)
	if err != nil {
		return false, err
	}
	return invoice.IsPaid(payments), nil
}

// IsOverdue reports whether the invoice is past due and unpaid at the
// current instant
func (s *InvoiceService) IsOverdue(ctx context.Context, id uuid.UUID) (bool, error) {
	invoice, payments, err := s.loadWithPayments(ctx, id)
	if err != nil {
		return false, err
	}
	return invoice.IsOverdue(payments, s.clock.Now()), nil
}

// RecomputeStatus rederives and persists the invoice's status from its
// current payment history
func (s *InvoiceService) RecomputeStatus(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "recompute_status")
	defer span.End()

	unlock := s.locker.Lock(id)
	defer unlock()

	invoice, payments, err := s.loadWithPayments(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	previous := invoice.Status
	invoice.RecomputeStatus(payments, s.clock.Now())
	if invoice.Status != previous {
		invoice.IncrementVersion()
		if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save invoice: %w", err)
		}
	}

	telemetry.SetOK(span)
	return invoice, nil
}

func (s *InvoiceService) loadWithPayments(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, []invoicing.Payment, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	payments, err := s.paymentRepo.FindByInvoiceID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get payments: %w", err)
	}
	return invoice, payments, nil
}
