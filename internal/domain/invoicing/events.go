package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the invoicing domain
const (
	EventTypeInvoiceCreated   = "invoicing.invoice.created"
	EventTypeInvoiceCancelled = "invoicing.invoice.cancelled"
	EventTypePaymentRecorded  = "invoicing.payment.recorded"
	EventTypeLateFeeApplied   = "invoicing.latefee.applied"
	EventTypeReminderSent     = "invoicing.reminder.sent"
)

const aggregateTypeInvoice = "Invoice"

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
}

// NewInvoiceCreatedEvent creates an InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice, occurredAt time.Time) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, aggregateTypeInvoice, inv.ID, occurredAt),
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerName:    inv.CustomerName,
		Amount:          inv.Amount,
		DueDate:         inv.DueDate,
	}
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
}

// NewInvoiceCancelledEvent creates an InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice, occurredAt time.Time) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, aggregateTypeInvoice, inv.ID, occurredAt),
		InvoiceNumber:   inv.InvoiceNumber,
	}
}

// PaymentRecordedEvent is raised when a payment is recorded against an invoice
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	NewStatus     InvoiceStatus   `json:"new_status"`
}

// NewPaymentRecordedEvent creates a PaymentRecordedEvent
func NewPaymentRecordedEvent(inv *Invoice, payment *Payment, occurredAt time.Time) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, aggregateTypeInvoice, inv.ID, occurredAt),
		InvoiceNumber:   inv.InvoiceNumber,
		PaymentID:       payment.ID,
		Amount:          payment.Amount,
		Method:          payment.Method,
		Reference:       payment.Reference,
		NewStatus:       inv.Status,
	}
}

// LateFeeAppliedEvent is raised when a late fee is assessed on an overdue invoice
type LateFeeAppliedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	LateFeeID     uuid.UUID       `json:"late_fee_id"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedDate   time.Time       `json:"applied_date"`
}

// NewLateFeeAppliedEvent creates a LateFeeAppliedEvent
func NewLateFeeAppliedEvent(inv *Invoice, fee *LateFee, occurredAt time.Time) *LateFeeAppliedEvent {
	return &LateFeeAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLateFeeApplied, aggregateTypeInvoice, inv.ID, occurredAt),
		InvoiceNumber:   inv.InvoiceNumber,
		LateFeeID:       fee.ID,
		Amount:          fee.Amount,
		AppliedDate:     fee.AppliedDate,
	}
}

// ReminderSentEvent is raised when a payment reminder is recorded for an invoice
type ReminderSentEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string       `json:"invoice_number"`
	ReminderID    uuid.UUID    `json:"reminder_id"`
	ReminderType  ReminderType `json:"reminder_type"`
	SentDate      time.Time    `json:"sent_date"`
}

// NewReminderSentEvent creates a ReminderSentEvent
func NewReminderSentEvent(inv *Invoice, rem *Reminder, occurredAt time.Time) *ReminderSentEvent {
	return &ReminderSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReminderSent, aggregateTypeInvoice, inv.ID, occurredAt),
		InvoiceNumber:   inv.InvoiceNumber,
		ReminderID:      rem.ID,
		ReminderType:    rem.Type,
		SentDate:        rem.SentDate,
	}
}
