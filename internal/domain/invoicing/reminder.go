package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
)

// ReminderType identifies the occasion a reminder was sent for
type ReminderType string

const (
	ReminderTypeBeforeDue ReminderType = "BEFORE_DUE"
	ReminderTypeOnDueDate ReminderType = "ON_DUE_DATE"
	ReminderTypeAfterDue  ReminderType = "AFTER_DUE"
)

// IsValid checks if the reminder type is valid
func (t ReminderType) IsValid() bool {
	switch t {
	case ReminderTypeBeforeDue, ReminderTypeOnDueDate, ReminderTypeAfterDue:
		return true
	}
	return false
}

// String returns the string representation of ReminderType
func (t ReminderType) String() string {
	return string(t)
}

// Reminder represents a reminder notification recorded for an invoice.
// Reminders are recorded, not transmitted; delivery is out of scope.
type Reminder struct {
	shared.BaseEntity
	InvoiceID uuid.UUID    `json:"invoice_id"`
	Type      ReminderType `json:"type"`
	SentDate  time.Time    `json:"sent_date"`
	Message   string       `json:"message,omitempty"`
}

// NewReminder creates a new reminder with the sent date set to the
// recording instant. No duplicate suppression happens here; the
// eligibility scan is the read-side guard.
func NewReminder(invoiceID uuid.UUID, reminderType ReminderType, message string, now time.Time) (*Reminder, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE_ID", "Invoice ID cannot be empty")
	}
	if !reminderType.IsValid() {
		return nil, shared.NewDomainError("INVALID_REMINDER_TYPE", "Reminder type is not valid")
	}

	return &Reminder{
		BaseEntity: shared.NewBaseEntity(now),
		InvoiceID:  invoiceID,
		Type:       reminderType,
		SentDate:   now,
		Message:    message,
	}, nil
}

// SuppressionRule describes how duplicate reminders are suppressed
// for a reminder branch.
type SuppressionRule string

const (
	// SuppressByTypeEver suppresses the branch once a reminder of the
	// same type has ever been sent, regardless of date.
	SuppressByTypeEver SuppressionRule = "BY_TYPE_EVER"
	// SuppressAnyTypeToday suppresses the branch when a reminder of
	// any type has already been sent on the current date.
	SuppressAnyTypeToday SuppressionRule = "ANY_TYPE_TODAY"
)

// ReminderPolicy carries the reminder scheduling parameters together
// with the per-branch suppression rules. The asymmetry between the
// branches (by-type-ever for the first two, any-type-today for the
// recurring after-due branch) is a business rule, so it is an explicit
// policy value rather than three divergent code paths.
type ReminderPolicy struct {
	DaysBefore int
	DaysAfter  int

	BeforeDueSuppression SuppressionRule
	OnDueDateSuppression SuppressionRule
	AfterDueSuppression  SuppressionRule
}

// DefaultReminderPolicy returns the standard policy for the given
// scheduling windows.
func DefaultReminderPolicy(daysBefore, daysAfter int) ReminderPolicy {
	return ReminderPolicy{
		DaysBefore:           daysBefore,
		DaysAfter:            daysAfter,
		BeforeDueSuppression: SuppressByTypeEver,
		OnDueDateSuppression: SuppressByTypeEver,
		AfterDueSuppression:  SuppressAnyTypeToday,
	}
}

// suppressed evaluates whether a branch is blocked by its suppression
// rule given the invoice's reminder history.
func suppressed(rule SuppressionRule, branch ReminderType, reminders []Reminder, now time.Time) bool {
	switch rule {
	case SuppressByTypeEver:
		for _, r := range reminders {
			if r.Type == branch {
				return true
			}
		}
		return false
	case SuppressAnyTypeToday:
		for _, r := range reminders {
			if sameDate(r.SentDate, now) {
				return true
			}
		}
		return false
	}
	return false
}

// NeededReminders returns the reminder branches an invoice qualifies
// for at the given instant. An unpaid invoice can match:
//   - BeforeDue: due within DaysBefore days, due date still ahead
//   - OnDueDate: due date is exactly today
//   - AfterDue: overdue and daysSinceOverdue is a whole multiple of
//     DaysAfter (day zero included when an invoice is due today and
//     already counts as overdue)
//
// each subject to its suppression rule. Cancelled invoices never need
// reminders.
func NeededReminders(inv *Invoice, payments []Payment, reminders []Reminder, now time.Time, policy ReminderPolicy) []ReminderType {
	if inv.Status.IsTerminal() || inv.IsPaid(payments) {
		return nil
	}

	var needed []ReminderType

	daysUntilDue := int(dateOf(inv.DueDate).Sub(dateOf(now)).Hours() / 24)

	if policy.DaysBefore > 0 && daysUntilDue > 0 && daysUntilDue <= policy.DaysBefore {
		if !suppressed(policy.BeforeDueSuppression, ReminderTypeBeforeDue, reminders, now) {
			needed = append(needed, ReminderTypeBeforeDue)
		}
	}

	if daysUntilDue == 0 {
		if !suppressed(policy.OnDueDateSuppression, ReminderTypeOnDueDate, reminders, now) {
			needed = append(needed, ReminderTypeOnDueDate)
		}
	}

	if policy.DaysAfter > 0 && inv.IsOverdue(payments, now) {
		if inv.DaysOverdue(now)%policy.DaysAfter == 0 {
			if !suppressed(policy.AfterDueSuppression, ReminderTypeAfterDue, reminders, now) {
				needed = append(needed, ReminderTypeAfterDue)
			}
		}
	}

	return needed
}
