// Package integration tests the transactional outbox end to end:
// domain events written in the same transaction as the aggregate,
// polled by the processor and dispatched on the event bus.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/clock"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/event"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/invoicing/backend/tests/testutil"
)

// TestOutboxFlow_Integration covers the full path: service call,
// outbox row in the aggregate's transaction, processor poll, event
// bus dispatch, entry marked sent.
func TestOutboxFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	ctx := context.Background()
	logger := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer)

	invoiceRepo := persistence.NewGormInvoiceRepository(testDB.DB)
	invoiceRepo.SetOutboxEventSaver(publisher)
	paymentRepo := persistence.NewGormPaymentRepository(testDB.DB)
	outboxRepo := event.NewGormOutboxRepository(testDB.DB)

	locker := invoicingapp.NewInvoiceLocker()
	invoiceService := invoicingapp.NewInvoiceService(invoiceRepo, paymentRepo, locker, clk)
	paymentService := invoicingapp.NewPaymentService(paymentRepo, invoiceRepo, locker, clk, logger)

	// Creating an invoice stores the created event alongside the row
	created, err := invoiceService.Create(ctx, invoicingapp.CreateInvoiceRequest{
		InvoiceNumber: "INV-3001",
		CustomerName:  "Acme Corp",
		Amount:        decimal.NewFromInt(80),
		DueDate:       time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	pending, err := outboxRepo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, invoicing.EventTypeInvoiceCreated, pending[0].EventType)
	assert.Equal(t, created.ID, pending[0].AggregateID)
	assert.Equal(t, shared.OutboxStatusPending, pending[0].Status)

	// Recording a payment appends the payment event
	_, err = paymentService.RecordPayment(ctx, invoicingapp.RecordPaymentRequest{
		InvoiceID: created.ID,
		Amount:    decimal.NewFromInt(30),
		Method:    "BANK_TRANSFER",
	})
	require.NoError(t, err)

	pending, err = outboxRepo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// The processor drains pending entries onto the bus
	bus := event.NewInMemoryEventBus(logger)
	handler := testutil.NewRecordingEventHandler(
		invoicing.EventTypeInvoiceCreated,
		invoicing.EventTypePaymentRecorded,
	)
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(ctx))
	defer bus.Stop(ctx)

	config := event.DefaultOutboxProcessorConfig()
	config.PollInterval = 50 * time.Millisecond
	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, config, logger)
	require.NoError(t, processor.Start(ctx))
	defer processor.Stop(ctx)

	require.True(t, testutil.WaitForEventCount(t, handler, 2, 10*time.Second),
		"expected both events to be dispatched")

	types := make([]string, 0, 2)
	for _, e := range handler.Events() {
		types = append(types, e.EventType())
	}
	assert.ElementsMatch(t, []string{
		invoicing.EventTypeInvoiceCreated,
		invoicing.EventTypePaymentRecorded,
	}, types)

	// Dispatched entries end up marked sent
	testutil.RequireEventually(t, func() bool {
		counts, err := outboxRepo.CountByStatus(ctx)
		return err == nil && counts[shared.OutboxStatusSent] == 2
	}, 10*time.Second, 50*time.Millisecond, "expected both entries to be marked sent")

	// The dispatched payload round-trips through the serializer
	var createdEvent *invoicing.InvoiceCreatedEvent
	for _, e := range handler.Events() {
		if ev, ok := e.(*invoicing.InvoiceCreatedEvent); ok {
			createdEvent = ev
		}
	}
	require.NotNil(t, createdEvent)
	assert.Equal(t, created.ID, createdEvent.AggregateID())
	assert.Equal(t, "INV-3001", createdEvent.InvoiceNumber)
}

// TestOutboxCancellation_Integration verifies the cancelled event is
// written through the optimistic-lock save path.
func TestOutboxCancellation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)

	invoiceRepo := persistence.NewGormInvoiceRepository(testDB.DB)
	invoiceRepo.SetOutboxEventSaver(event.NewOutboxPublisher(serializer))
	paymentRepo := persistence.NewGormPaymentRepository(testDB.DB)
	outboxRepo := event.NewGormOutboxRepository(testDB.DB)

	invoiceService := invoicingapp.NewInvoiceService(invoiceRepo, paymentRepo, invoicingapp.NewInvoiceLocker(), clk)

	created, err := invoiceService.Create(ctx, invoicingapp.CreateInvoiceRequest{
		InvoiceNumber: "INV-3002",
		CustomerName:  "Globex Inc",
		Amount:        decimal.NewFromInt(40),
		DueDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = invoiceService.Cancel(ctx, created.ID)
	require.NoError(t, err)

	pending, err := outboxRepo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	types := []string{pending[0].EventType, pending[1].EventType}
	assert.ElementsMatch(t, []string{
		invoicing.EventTypeInvoiceCreated,
		invoicing.EventTypeInvoiceCancelled,
	}, types)

	// Events are cleared from the aggregate after the commit
	stored, err := invoiceRepo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.GetDomainEvents())
}
