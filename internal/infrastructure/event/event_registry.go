package event

import (
	"github.com/invoicing/backend/internal/domain/invoicing"
)

// RegisterAllEvents registers all domain event types with the serializer.
// This is required for the OutboxProcessor to deserialize events from the outbox table.
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(invoicing.EventTypeInvoiceCreated, &invoicing.InvoiceCreatedEvent{})
	serializer.Register(invoicing.EventTypeInvoiceCancelled, &invoicing.InvoiceCancelledEvent{})
	serializer.Register(invoicing.EventTypePaymentRecorded, &invoicing.PaymentRecordedEvent{})
	serializer.Register(invoicing.EventTypeLateFeeApplied, &invoicing.LateFeeAppliedEvent{})
	serializer.Register(invoicing.EventTypeReminderSent, &invoicing.ReminderSentEvent{})
}
