// Package pool stores identifiers harvested from invoicing API responses so
// that later requests can reuse them. Values are grouped by kind and expire
// after a configurable TTL.
package pool

import (
	"sync/atomic"
	"time"
)

// Kind classifies a harvested value by what it identifies.
type Kind string

// Kinds harvested from the invoicing API.
const (
	KindInvoiceID        Kind = "invoicing.invoice.id"
	KindOverdueInvoiceID Kind = "invoicing.invoice.overdue_id"
	KindPaidInvoiceID    Kind = "invoicing.invoice.paid_id"
	KindInvoiceNumber    Kind = "invoicing.invoice.number"
	KindPaymentID        Kind = "invoicing.payment.id"
	KindLateFeeID        Kind = "invoicing.late_fee.id"
	KindReminderID       Kind = "invoicing.reminder.id"

	KindCustomerName Kind = "common.customer_name"
	KindUUID         Kind = "common.uuid"
)

// Harvested is a single identifier captured from an API response, together
// with where it came from and when it stops being usable.
// Touch is safe to call concurrently; the other fields are written once.
type Harvested struct {
	// Value is the identifier itself, as it appeared on the wire.
	Value string

	// Kind classifies the identifier.
	Kind Kind

	// Endpoint is the request that produced the value (e.g. "POST /invoices").
	Endpoint string

	// HarvestedAt is when the value was captured.
	HarvestedAt time.Time

	// ExpiresAt is when the value stops being usable (zero means never).
	ExpiresAt time.Time

	useCount   atomic.Int64
	lastUsedAt atomic.Int64 // Unix nanoseconds
}

// NewHarvested captures a value of the given kind. A TTL of 0 means the
// value never expires.
func NewHarvested(value string, kind Kind, ttl time.Duration) *Harvested {
	now := time.Now()
	h := &Harvested{
		Value:       value,
		Kind:        kind,
		HarvestedAt: now,
	}
	h.lastUsedAt.Store(now.UnixNano())
	if ttl > 0 {
		h.ExpiresAt = now.Add(ttl)
	}
	return h
}

// FromEndpoint records the request that produced this value.
func (h *Harvested) FromEndpoint(endpoint string) *Harvested {
	h.Endpoint = endpoint
	return h
}

// Expired reports whether this value is past its TTL.
func (h *Harvested) Expired() bool {
	if h.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(h.ExpiresAt)
}

// Touch records a use of this value.
func (h *Harvested) Touch() {
	h.useCount.Add(1)
	h.lastUsedAt.Store(time.Now().UnixNano())
}

// UseCount returns how many times this value has been handed out.
func (h *Harvested) UseCount() int64 {
	return h.useCount.Load()
}

// LastUsedAt returns when this value was last handed out.
func (h *Harvested) LastUsedAt() time.Time {
	return time.Unix(0, h.lastUsedAt.Load())
}

// Clone returns a copy of this value, including its use statistics.
func (h *Harvested) Clone() *Harvested {
	clone := &Harvested{
		Value:       h.Value,
		Kind:        h.Kind,
		Endpoint:    h.Endpoint,
		HarvestedAt: h.HarvestedAt,
		ExpiresAt:   h.ExpiresAt,
	}
	clone.useCount.Store(h.useCount.Load())
	clone.lastUsedAt.Store(h.lastUsedAt.Load())
	return clone
}
