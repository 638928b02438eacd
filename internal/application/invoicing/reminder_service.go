package invoicing

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/clock"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
)

// ReminderService records reminders and determines which invoices
// need one today.
type ReminderService struct {
	reminderRepo invoicing.ReminderRepository
	invoiceRepo  invoicing.InvoiceRepository
	clock        clock.Clock
}

// NewReminderService creates a new ReminderService
func NewReminderService(
	reminderRepo invoicing.ReminderRepository,
	invoiceRepo invoicing.InvoiceRepository,
	clk clock.Clock,
) *ReminderService {
	return &ReminderService{
		reminderRepo: reminderRepo,
		invoiceRepo:  invoiceRepo,
		clock:        clk,
	}
}

// SendReminderRequest represents a request to record a reminder
type SendReminderRequest struct {
	InvoiceID uuid.UUID
	Type      invoicing.ReminderType
	Message   string
}

// ReminderCandidate pairs an invoice with the reminder branches it
// currently qualifies for.
type ReminderCandidate struct {
	Invoice invoicing.Invoice      `json:"invoice"`
	Needed  []invoicing.ReminderType `json:"needed"`
}

// ListByInvoice returns all reminders recorded for an invoice
func (s *ReminderService) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Reminder, error) {
	reminders, err := s.reminderRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

// Send records a reminder with the sent date set to the current
// instant. There is no duplicate suppression here; the eligibility
// scan is the read-side guard and duplicate sends are the caller's
// responsibility.
func (s *ReminderService) Send(ctx context.Context, req SendReminderRequest) (*invoicing.Reminder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reminder", "send")
	defer span.End()

	invoice, err := s.invoiceRepo.FindByID(ctx, req.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	now := s.clock.Now()
	reminder, err := invoicing.NewReminder(req.InvoiceID, req.Type, req.Message, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.reminderRepo.Save(ctx, reminder); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save reminder: %w", err)
	}

	invoice.AddDomainEvent(invoicing.NewReminderSentEvent(invoice, reminder, now))
	invoice.IncrementVersion()
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, req.InvoiceID.String())
	telemetry.RecordReminderSent(ctx, string(req.Type))
	telemetry.SetOK(span)

	return reminder, nil
}

// InvoicesNeeding scans for invoices that qualify for any reminder
// branch today under the default suppression policy, ordered by
// invoice ID ascending.
func (s *ReminderService) InvoicesNeeding(ctx context.Context, daysBefore, daysAfter int) ([]ReminderCandidate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reminder", "invoices_needing")
	defer span.End()

	now := s.clock.Now()
	policy := invoicing.DefaultReminderPolicy(daysBefore, daysAfter)

	dueSoon, err := s.invoiceRepo.FindDueWithin(ctx, now, daysBefore)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list due-soon invoices: %w", err)
	}

	overdue, err := s.invoiceRepo.FindOverdue(ctx, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list overdue invoices: %w", err)
	}

	// Union the two candidate sets; an invoice due today can appear
	// in both when it is already past its due instant.
	seen := make(map[uuid.UUID]bool)
	candidates := make([]invoicing.Invoice, 0, len(dueSoon)+len(overdue))
	for _, inv := range append(dueSoon, overdue...) {
		if seen[inv.ID] {
			continue
		}
		seen[inv.ID] = true
		candidates = append(candidates, inv)
	}

	result := make([]ReminderCandidate, 0, len(candidates))
	for i := range candidates {
		inv := &candidates[i]
		reminders, err := s.reminderRepo.FindByInvoiceID(ctx, inv.ID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to get reminders: %w", err)
		}
		needed := invoicing.NeededReminders(inv, inv.Payments, reminders, now, policy)
		if len(needed) > 0 {
			result = append(result, ReminderCandidate{Invoice: *inv, Needed: needed})
		}
	}

	// Ascending by the UUID's byte sequence, matching how the repository
	// orders the id column.
	sort.Slice(result, func(a, b int) bool {
		return bytes.Compare(result[a].Invoice.ID[:], result[b].Invoice.ID[:]) < 0
	})

	telemetry.SetOK(span)
	return result, nil
}
