package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes a client-supplied direction, defaulting
// anything unrecognized to DESC.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField keeps ORDER BY columns to a known whitelist so request
// parameters can never reach SQL verbatim.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InvoiceSortFields lists the columns invoice listings may sort on.
var InvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"customer_name":  true,
	"amount":         true,
	"due_date":       true,
	"status":         true,
}

// PaymentSortFields lists the columns payment listings may sort on.
var PaymentSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"payment_date": true,
	"amount":       true,
}
