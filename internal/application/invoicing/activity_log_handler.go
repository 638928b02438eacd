package invoicing

import (
	"context"

	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ActivityLogHandler subscribes to every invoicing domain event and
// writes a structured activity record to the application log. It is the
// audit trail consumer for events delivered through the outbox.
type ActivityLogHandler struct {
	logger *zap.Logger
}

// NewActivityLogHandler creates a new activity log handler
func NewActivityLogHandler(logger *zap.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ActivityLogHandler) EventTypes() []string {
	return []string{
		invoicing.EventTypeInvoiceCreated,
		invoicing.EventTypeInvoiceCancelled,
		invoicing.EventTypePaymentRecorded,
		invoicing.EventTypeLateFeeApplied,
		invoicing.EventTypeReminderSent,
	}
}

// Handle writes an activity record for the event
func (h *ActivityLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("invoice_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *invoicing.InvoiceCreatedEvent:
		h.logger.Info("invoice created",
			append(fields,
				zap.String("invoice_number", e.InvoiceNumber),
				zap.String("customer_name", e.CustomerName),
				zap.String("amount", e.Amount.String()),
				zap.Time("due_date", e.DueDate),
			)...)
	case *invoicing.InvoiceCancelledEvent:
		h.logger.Info("invoice cancelled",
			append(fields, zap.String("invoice_number", e.InvoiceNumber))...)
	case *invoicing.PaymentRecordedEvent:
		h.logger.Info("payment recorded",
			append(fields,
				zap.String("invoice_number", e.InvoiceNumber),
				zap.String("payment_id", e.PaymentID.String()),
				zap.String("amount", e.Amount.String()),
				zap.String("new_status", string(e.NewStatus)),
			)...)
	case *invoicing.LateFeeAppliedEvent:
		h.logger.Info("late fee applied",
			append(fields,
				zap.String("invoice_number", e.InvoiceNumber),
				zap.String("late_fee_id", e.LateFeeID.String()),
				zap.String("amount", e.Amount.String()),
			)...)
	case *invoicing.ReminderSentEvent:
		h.logger.Info("reminder sent",
			append(fields,
				zap.String("invoice_number", e.InvoiceNumber),
				zap.String("reminder_id", e.ReminderID.String()),
				zap.String("reminder_type", string(e.ReminderType)),
			)...)
	default:
		h.logger.Info("invoicing event",
			append(fields, zap.String("event_type", event.EventType()))...)
	}

	return nil
}

// Ensure ActivityLogHandler implements shared.EventHandler
var _ shared.EventHandler = (*ActivityLogHandler)(nil)
