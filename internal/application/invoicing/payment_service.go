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
	"go.uber.org/zap"
)

// PaymentService records payments and keeps the owning invoice's
// status in sync with its payment history.
type PaymentService struct {
	paymentRepo invoicing.PaymentRepository
	invoiceRepo invoicing.InvoiceRepository
	locker      *InvoiceLocker
	clock       clock.Clock
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo invoicing.PaymentRepository,
	invoiceRepo invoicing.InvoiceRepository,
	locker *InvoiceLocker,
	clk clock.Clock,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		locker:      locker,
		clock:       clk,
		logger:      logger,
	}
}

// RecordPaymentRequest represents a request to record a payment
type RecordPaymentRequest struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Method    string
	Reference string
}

// UpdatePaymentRequest represents a request to update a payment
type UpdatePaymentRequest struct {
	Amount    decimal.Decimal
	Method    string
	Reference string
}

// ListByInvoice returns all payments recorded against an invoice
func (s *PaymentService) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Payment, error) {
	payments, err := s.paymentRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// Get returns a payment by ID
func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*invoicing.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// RecordPayment persists a payment with the payment date stamped to
// the current instant, then recomputes the owning invoice's status.
// When the owning invoice cannot be found the payment is still
// recorded and the recompute is silently skipped; that tolerance
// covers an invoice deleted concurrently with the recording.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*invoicing.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record")
	defer span.End()

	unlock := s.locker.Lock(req.InvoiceID)
	defer unlock()

	invoice, err := s.invoiceRepo.FindByID(ctx, req.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	if invoice.Status.IsTerminal() {
		err := shared.NewDomainError("INVALID_STATE", "Cannot record a payment on a cancelled invoice")
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.clock.Now()
	payment, err := invoicing.NewPayment(req.InvoiceID, valueobject.NewMoney(req.Amount), req.Method, req.Reference, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	if err := s.applyPaymentToInvoice(ctx, payment, now); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, req.InvoiceID.String())
	telemetry.RecordPaymentRecorded(ctx, payment.Amount)
	telemetry.SetOK(span)

	return payment, nil
}

// UpdatePayment changes a payment's fields and recomputes the owning
// invoice's status afterwards
func (s *PaymentService) UpdatePayment(ctx context.Context, id uuid.UUID, req UpdatePaymentRequest) (*invoicing.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "update")
	defer span.End()

	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	unlock := s.locker.Lock(payment.InvoiceID)
	defer unlock()

	if err := payment.Update(valueobject.NewMoney(req.Amount), req.Method, req.Reference, s.clock.Now()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	if err := s.recomputeInvoiceStatus(ctx, payment.InvoiceID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return payment, nil
}

// DeletePayment removes a payment and recomputes the owning invoice's
// status. Deleting a payment that does not exist is a no-op.
func (s *PaymentService) DeletePayment(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "delete")
	defer span.End()

	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to get payment: %w", err)
	}

	unlock := s.locker.Lock(payment.InvoiceID)
	defer unlock()

	if err := s.paymentRepo.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to delete payment: %w", err)
	}

	if err := s.recomputeInvoiceStatus(ctx, payment.InvoiceID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.SetOK(span)
	return nil
}

// TotalPayments returns the sum of all payment amounts for an
// invoice; zero if there are none
func (s *PaymentService) TotalPayments(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	payments, err := s.paymentRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list payments: %w", err)
	}
	return invoicing.TotalPayments(payments), nil
}

// recomputeInvoiceStatus rederives the invoice status from the full
// payment history. A missing invoice is skipped without error.
func (s *PaymentService) recomputeInvoiceStatus(ctx context.Context, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("skipping status recompute, invoice not found",
				zap.String("invoice_id", invoiceID.String()))
			return nil
		}
		return fmt.Errorf("failed to get invoice: %w", err)
	}

	payments, err := s.paymentRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to get payments: %w", err)
	}

	previous := invoice.Status
	invoice.RecomputeStatus(payments, s.clock.Now())
	if invoice.Status == previous {
		return nil
	}

	invoice.IncrementVersion()
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// applyPaymentToInvoice rederives the owning invoice's status and queues
// a payment recorded event for the outbox. A missing invoice is skipped
// without error.
func (s *PaymentService) applyPaymentToInvoice(ctx context.Context, payment *invoicing.Payment, now time.Time) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, payment.InvoiceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("skipping status recompute, invoice not found",
				zap.String("invoice_id", payment.InvoiceID.String()))
			return nil
		}
		return fmt.Errorf("failed to get invoice: %w", err)
	}

	payments, err := s.paymentRepo.FindByInvoiceID(ctx, payment.InvoiceID)
	if err != nil {
		return fmt.Errorf("failed to get payments: %w", err)
	}

	invoice.RecomputeStatus(payments, now)
	invoice.AddDomainEvent(invoicing.NewPaymentRecordedEvent(invoice, payment, now))
	invoice.IncrementVersion()

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}
