package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/clock"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// LateFeeService assesses late fees on overdue invoices
type LateFeeService struct {
	feeRepo     invoicing.LateFeeRepository
	invoiceRepo invoicing.InvoiceRepository
	paymentRepo invoicing.PaymentRepository
	locker      *InvoiceLocker
	clock       clock.Clock
}

// NewLateFeeService creates a new LateFeeService
func NewLateFeeService(
	feeRepo invoicing.LateFeeRepository,
	invoiceRepo invoicing.InvoiceRepository,
	paymentRepo invoicing.PaymentRepository,
	locker *InvoiceLocker,
	clk clock.Clock,
) *LateFeeService {
	return &LateFeeService{
		feeRepo:     feeRepo,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		locker:      locker,
		clock:       clk,
	}
}

// ApplyLateFeeRequest represents a request to assess a late fee
type ApplyLateFeeRequest struct {
	InvoiceID     uuid.UUID
	FeePercentage decimal.Decimal
	Description   string
}

// ListByInvoice returns all late fees assessed against an invoice
func (s *LateFeeService) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LateFee, error) {
	fees, err := s.feeRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list late fees: %w", err)
	}
	return fees, nil
}

// Calculate computes the late fee for an invoice without persisting
// anything. asOf defaults to the current instant when zero; the
// overdue check always evaluates against the current instant while
// the due-date cutoff uses asOf.
func (s *LateFeeService) Calculate(ctx context.Context, invoiceID uuid.UUID, asOf time.Time, feePercentage decimal.Decimal) (decimal.Decimal, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get invoice: %w", err)
	}

	payments, err := s.paymentRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get payments: %w", err)
	}

	now := s.clock.Now()
	if asOf.IsZero() {
		asOf = now
	}

	return invoicing.CalculateLateFee(invoice, payments, now, asOf, feePercentage), nil
}

// Apply assesses a late fee against an overdue invoice. The invoice
// must be overdue and must not have had a fee applied today; otherwise
// a domain error is returned and nothing is persisted.
func (s *LateFeeService) Apply(ctx context.Context, req ApplyLateFeeRequest) (*invoicing.LateFee, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "latefee", "apply")
	defer span.End()

	unlock := s.locker.Lock(req.InvoiceID)
	defer unlock()

	invoice, err := s.invoiceRepo.FindByID(ctx, req.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	payments, err := s.paymentRepo.FindByInvoiceID(ctx, req.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}

	fees, err := s.feeRepo.FindByInvoiceID(ctx, req.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get late fees: %w", err)
	}

	now := s.clock.Now()
	if !invoicing.EligibleForLateFee(invoice, payments, fees, now) {
		err := shared.NewDomainError("NOT_ELIGIBLE", "Invoice is not eligible for a late fee")
		telemetry.RecordError(span, err)
		return nil, err
	}

	amount := invoicing.CalculateLateFee(invoice, payments, now, now, req.FeePercentage)
	fee, err := invoicing.NewLateFee(req.InvoiceID, amount, req.Description, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.feeRepo.Save(ctx, fee); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save late fee: %w", err)
	}

	invoice.AddDomainEvent(invoicing.NewLateFeeAppliedEvent(invoice, fee, now))
	invoice.IncrementVersion()
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, req.InvoiceID.String())
	telemetry.RecordLateFeeApplied(ctx, fee.Amount)
	telemetry.SetOK(span)

	return fee, nil
}

// InvoicesEligible returns all currently-overdue invoices that have
// not had a fee applied today, ordered by invoice ID ascending. The
// list is recomputed fresh on every call.
func (s *LateFeeService) InvoicesEligible(ctx context.Context) ([]invoicing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "latefee", "invoices_eligible")
	defer span.End()

	now := s.clock.Now()
	overdue, err := s.invoiceRepo.FindOverdue(ctx, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list overdue invoices: %w", err)
	}

	eligible := make([]invoicing.Invoice, 0, len(overdue))
	for i := range overdue {
		inv := &overdue[i]
		fees, err := s.feeRepo.FindByInvoiceID(ctx, inv.ID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to get late fees: %w", err)
		}
		if invoicing.EligibleForLateFee(inv, inv.Payments, fees, now) {
			eligible = append(eligible, *inv)
		}
	}

	telemetry.SetOK(span)
	return eligible, nil
}
