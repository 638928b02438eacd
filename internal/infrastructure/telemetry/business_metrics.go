// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the invoicing system.
// It tracks invoice creation, payment activity, late fee assessment and
// reminder dispatch, plus the current overdue backlog.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	invoiceCreatedTotal  *Counter
	invoiceAmountTotal   *Counter
	paymentRecordedTotal *Counter
	paymentAmountTotal   *Counter
	lateFeeAppliedTotal  *Counter
	lateFeeAmountTotal   *Counter
	reminderSentTotal    *Counter

	// Gauge metrics (point-in-time values)
	invoicesOverdue *Gauge
	invoicesOpen    *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	backlogProvider BacklogMetricsProvider
}

// BacklogMetricsProvider provides invoice backlog data for periodic
// metrics collection. The interface keeps the telemetry layer from
// depending on the invoicing domain directly.
type BacklogMetricsProvider interface {
	// CountOverdue returns the number of invoices past due and not paid or cancelled
	CountOverdue(ctx context.Context) (int64, error)

	// CountOpen returns the number of invoices that are neither paid nor cancelled
	CountOpen(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	BacklogProvider BacklogMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		backlogProvider: cfg.BacklogProvider,
	}

	var err error

	bm.invoiceCreatedTotal, err = NewCounter(
		cfg.Meter,
		"invoicing_invoice_created_total",
		"Total number of invoices created",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoiceAmountTotal, err = NewCounter(
		cfg.Meter,
		"invoicing_invoice_amount_total",
		"Total face amount of created invoices in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentRecordedTotal, err = NewCounter(
		cfg.Meter,
		"invoicing_payment_recorded_total",
		"Total number of payments recorded",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentAmountTotal, err = NewCounter(
		cfg.Meter,
		"invoicing_payment_amount_total",
		"Total payment amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.lateFeeAppliedTotal, err = NewCounter(
		cfg.Meter,
		"invoicing_late_fee_applied_total",
		"Total number of late fees assessed",
		"{fees}",
	)
	if err != nil {
		return nil, err
	}

	bm.lateFeeAmountTotal, err = NewCounter(
		cfg.Meter,
		"invoicing_late_fee_amount_total",
		"Total late fee amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.reminderSentTotal, err = NewCounter(
		cfg.Meter,
		"invoicing_reminder_sent_total",
		"Total number of reminders sent, labeled by reminder type",
		"{reminders}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoicesOverdue, err = NewGauge(
		cfg.Meter,
		"invoicing_invoices_overdue",
		"Current number of overdue invoices",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoicesOpen, err = NewGauge(
		cfg.Meter,
		"invoicing_invoices_open",
		"Current number of unpaid, uncancelled invoices",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Recording
// =============================================================================

// RecordInvoiceCreated records an invoice creation event with its face amount.
func (bm *BusinessMetrics) RecordInvoiceCreated(ctx context.Context, amount decimal.Decimal) {
	bm.invoiceCreatedTotal.Inc(ctx)
	bm.invoiceAmountTotal.Add(ctx, toCents(amount))
}

// RecordPaymentRecorded records a payment event with its amount.
func (bm *BusinessMetrics) RecordPaymentRecorded(ctx context.Context, amount decimal.Decimal) {
	bm.paymentRecordedTotal.Inc(ctx)
	bm.paymentAmountTotal.Add(ctx, toCents(amount))
}

// RecordLateFeeApplied records a late fee assessment with its amount.
func (bm *BusinessMetrics) RecordLateFeeApplied(ctx context.Context, amount decimal.Decimal) {
	bm.lateFeeAppliedTotal.Inc(ctx)
	bm.lateFeeAmountTotal.Add(ctx, toCents(amount))
}

// RecordReminderSent records a reminder dispatch labeled by type.
func (bm *BusinessMetrics) RecordReminderSent(ctx context.Context, reminderType string) {
	bm.reminderSentTotal.Inc(ctx, AttrReminderType.String(reminderType))
}

// toCents converts a decimal amount to its smallest currency unit.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of the backlog gauges.
// This is non-blocking; use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectBacklogMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectBacklogMetrics(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectBacklogMetrics(ctx context.Context) {
	if bm.backlogProvider == nil {
		bm.logger.Debug("No backlog provider configured, skipping backlog metrics collection")
		return
	}

	overdue, err := bm.backlogProvider.CountOverdue(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count overdue invoices", zap.Error(err))
	} else {
		bm.invoicesOverdue.Record(ctx, overdue)
	}

	open, err := bm.backlogProvider.CountOpen(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count open invoices", zap.Error(err))
	} else {
		bm.invoicesOpen.Record(ctx, open)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Package-Level Recording
// =============================================================================

var (
	globalBusinessMetrics   *BusinessMetrics
	globalBusinessMetricsMu sync.RWMutex
)

// SetBusinessMetrics installs the process-wide BusinessMetrics instance used
// by the package-level Record functions. Pass nil to disable recording.
func SetBusinessMetrics(bm *BusinessMetrics) {
	globalBusinessMetricsMu.Lock()
	defer globalBusinessMetricsMu.Unlock()
	globalBusinessMetrics = bm
}

func businessMetrics() *BusinessMetrics {
	globalBusinessMetricsMu.RLock()
	defer globalBusinessMetricsMu.RUnlock()
	return globalBusinessMetrics
}

// RecordInvoiceCreated records an invoice creation on the global instance.
// It is a no-op when business metrics are not initialized.
func RecordInvoiceCreated(ctx context.Context, amount decimal.Decimal) {
	if bm := businessMetrics(); bm != nil {
		bm.RecordInvoiceCreated(ctx, amount)
	}
}

// RecordPaymentRecorded records a payment on the global instance.
// It is a no-op when business metrics are not initialized.
func RecordPaymentRecorded(ctx context.Context, amount decimal.Decimal) {
	if bm := businessMetrics(); bm != nil {
		bm.RecordPaymentRecorded(ctx, amount)
	}
}

// RecordLateFeeApplied records a late fee assessment on the global instance.
// It is a no-op when business metrics are not initialized.
func RecordLateFeeApplied(ctx context.Context, amount decimal.Decimal) {
	if bm := businessMetrics(); bm != nil {
		bm.RecordLateFeeApplied(ctx, amount)
	}
}

// RecordReminderSent records a reminder dispatch on the global instance.
// It is a no-op when business metrics are not initialized.
func RecordReminderSent(ctx context.Context, reminderType string) {
	if bm := businessMetrics(); bm != nil {
		bm.RecordReminderSent(ctx, reminderType)
	}
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
