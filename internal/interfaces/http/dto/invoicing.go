package dto

import (
	"time"

	"github.com/invoicing/backend/internal/domain/invoicing"
)

// InvoiceResponse represents an invoice in API responses
// @Description Invoice data
type InvoiceResponse struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	CustomerName  string    `json:"customer_name"`
	Description   string    `json:"description,omitempty"`
	Amount        string    `json:"amount"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InvoiceDetailResponse is an invoice with its associations loaded
// @Description Invoice data including payments, late fees and reminders
type InvoiceDetailResponse struct {
	InvoiceResponse
	Payments  []PaymentResponse  `json:"payments"`
	LateFees  []LateFeeResponse  `json:"late_fees"`
	Reminders []ReminderResponse `json:"reminders"`
}

// PaymentResponse represents a payment in API responses
// @Description Payment data
type PaymentResponse struct {
	ID          string    `json:"id"`
	InvoiceID   string    `json:"invoice_id"`
	Amount      string    `json:"amount"`
	PaymentDate time.Time `json:"payment_date"`
	Method      string    `json:"method,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LateFeeResponse represents a late fee in API responses
// @Description Late fee data
type LateFeeResponse struct {
	ID          string    `json:"id"`
	InvoiceID   string    `json:"invoice_id"`
	Amount      string    `json:"amount"`
	AppliedDate time.Time `json:"applied_date"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReminderResponse represents a reminder in API responses
// @Description Reminder data
type ReminderResponse struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Type      string    `json:"type"`
	SentDate  time.Time `json:"sent_date"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReminderCandidateResponse pairs an invoice with the reminder types it needs
// @Description Invoice needing reminders
type ReminderCandidateResponse struct {
	Invoice InvoiceResponse `json:"invoice"`
	Needed  []string        `json:"needed"`
}

// ToInvoiceResponse converts a domain invoice to its API representation
func ToInvoiceResponse(inv *invoicing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		Description:   inv.Description,
		Amount:        inv.Amount.StringFixed(2),
		DueDate:       inv.DueDate,
		Status:        string(inv.Status),
		Version:       inv.Version,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

// ToInvoiceResponses converts a slice of domain invoices
func ToInvoiceResponses(invoices []invoicing.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, ToInvoiceResponse(&invoices[i]))
	}
	return out
}

// ToInvoiceDetailResponse converts an invoice with loaded associations
func ToInvoiceDetailResponse(inv *invoicing.Invoice) InvoiceDetailResponse {
	return InvoiceDetailResponse{
		InvoiceResponse: ToInvoiceResponse(inv),
		Payments:        ToPaymentResponses(inv.Payments),
		LateFees:        ToLateFeeResponses(inv.LateFees),
		Reminders:       ToReminderResponses(inv.Reminders),
	}
}

// ToPaymentResponse converts a domain payment to its API representation
func ToPaymentResponse(p *invoicing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID.String(),
		InvoiceID:   p.InvoiceID.String(),
		Amount:      p.Amount.StringFixed(2),
		PaymentDate: p.PaymentDate,
		Method:      p.Method,
		Reference:   p.Reference,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToPaymentResponses converts a slice of domain payments
func ToPaymentResponses(payments []invoicing.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, ToPaymentResponse(&payments[i]))
	}
	return out
}

// ToLateFeeResponse converts a domain late fee to its API representation
func ToLateFeeResponse(f *invoicing.LateFee) LateFeeResponse {
	return LateFeeResponse{
		ID:          f.ID.String(),
		InvoiceID:   f.InvoiceID.String(),
		Amount:      f.Amount.StringFixed(2),
		AppliedDate: f.AppliedDate,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
	}
}

// ToLateFeeResponses converts a slice of domain late fees
func ToLateFeeResponses(fees []invoicing.LateFee) []LateFeeResponse {
	out := make([]LateFeeResponse, 0, len(fees))
	for i := range fees {
		out = append(out, ToLateFeeResponse(&fees[i]))
	}
	return out
}

// ToReminderResponse converts a domain reminder to its API representation
func ToReminderResponse(r *invoicing.Reminder) ReminderResponse {
	return ReminderResponse{
		ID:        r.ID.String(),
		InvoiceID: r.InvoiceID.String(),
		Type:      string(r.Type),
		SentDate:  r.SentDate,
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
}

// ToReminderResponses converts a slice of domain reminders
func ToReminderResponses(reminders []invoicing.Reminder) []ReminderResponse {
	out := make([]ReminderResponse, 0, len(reminders))
	for i := range reminders {
		out = append(out, ToReminderResponse(&reminders[i]))
	}
	return out
}
