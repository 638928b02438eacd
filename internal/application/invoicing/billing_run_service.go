package invoicing

import (
	"context"
	"fmt"

	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingRunConfig carries the parameters for the daily billing run
type BillingRunConfig struct {
	FeePercentage decimal.Decimal
	DaysBefore    int
	DaysAfter     int
}

// BillingRunSummary reports what a billing run did
type BillingRunSummary struct {
	FeesAssessed  int      `json:"fees_assessed"`
	RemindersSent int      `json:"reminders_sent"`
	Errors        []string `json:"errors,omitempty"`
}

// BillingRunService drives the daily automated pass: assess late fees
// for every eligible invoice and dispatch reminders for every invoice
// that needs one. A failure on one invoice is recorded and the run
// continues.
type BillingRunService struct {
	lateFeeSvc  *LateFeeService
	reminderSvc *ReminderService
	config      BillingRunConfig
	logger      *zap.Logger
}

// NewBillingRunService creates a new BillingRunService
func NewBillingRunService(
	lateFeeSvc *LateFeeService,
	reminderSvc *ReminderService,
	config BillingRunConfig,
	logger *zap.Logger,
) *BillingRunService {
	return &BillingRunService{
		lateFeeSvc:  lateFeeSvc,
		reminderSvc: reminderSvc,
		config:      config,
		logger:      logger,
	}
}

// RunDaily executes one billing pass
func (s *BillingRunService) RunDaily(ctx context.Context) (*BillingRunSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_run", "run_daily")
	defer span.End()

	summary := &BillingRunSummary{}

	eligible, err := s.lateFeeSvc.InvoicesEligible(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to scan for fee-eligible invoices: %w", err)
	}

	telemetry.WithProfilingLabels(ctx, telemetry.RegionLabels("billing_late_fees", nil), func(ctx context.Context) {
		for i := range eligible {
			inv := &eligible[i]
			_, err := s.lateFeeSvc.Apply(ctx, ApplyLateFeeRequest{
				InvoiceID:     inv.ID,
				FeePercentage: s.config.FeePercentage,
				Description:   "Automated daily late fee",
			})
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("late fee for invoice %s: %v", inv.ID, err))
				s.logger.Warn("billing run: late fee assessment failed",
					zap.String("invoice_id", inv.ID.String()),
					zap.Error(err))
				continue
			}
			summary.FeesAssessed++
		}
	})

	candidates, err := s.reminderSvc.InvoicesNeeding(ctx, s.config.DaysBefore, s.config.DaysAfter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to scan for reminder candidates: %w", err)
	}

	telemetry.WithProfilingLabels(ctx, telemetry.RegionLabels("billing_reminders", nil), func(ctx context.Context) {
		for _, c := range candidates {
			for _, reminderType := range c.Needed {
				_, err := s.reminderSvc.Send(ctx, SendReminderRequest{
					InvoiceID: c.Invoice.ID,
					Type:      reminderType,
					Message:   reminderMessage(reminderType, c.Invoice.InvoiceNumber),
				})
				if err != nil {
					summary.Errors = append(summary.Errors, fmt.Sprintf("reminder for invoice %s: %v", c.Invoice.ID, err))
					s.logger.Warn("billing run: reminder dispatch failed",
						zap.String("invoice_id", c.Invoice.ID.String()),
						zap.Error(err))
					continue
				}
				summary.RemindersSent++
			}
		}
	})

	s.logger.Info("billing run completed",
		zap.Int("fees_assessed", summary.FeesAssessed),
		zap.Int("reminders_sent", summary.RemindersSent),
		zap.Int("errors", len(summary.Errors)))

	telemetry.SetOK(span)
	return summary, nil
}

func reminderMessage(reminderType invoicing.ReminderType, invoiceNumber string) string {
	switch reminderType {
	case invoicing.ReminderTypeBeforeDue:
		return fmt.Sprintf("Invoice %s is due soon", invoiceNumber)
	case invoicing.ReminderTypeOnDueDate:
		return fmt.Sprintf("Invoice %s is due today", invoiceNumber)
	default:
		return fmt.Sprintf("Invoice %s is overdue", invoiceNumber)
	}
}
