package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentService_RecordPayment(t *testing.T) {
	t.Run("stamps the payment date from the clock", func(t *testing.T) {
		env := newTestEnv(t)
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))

		env.clock.Advance(48 * time.Hour)
		payment, err := env.paymentSvc.RecordPayment(context.Background(), RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    decimal.NewFromFloat(40),
			Method:    "BANK_TRANSFER",
			Reference: "REF-1",
		})
		require.NoError(t, err)
		assert.Equal(t, testNow.Add(48*time.Hour), payment.PaymentDate)
	})

	t.Run("flips the invoice to paid on full payment", func(t *testing.T) {
		env := newTestEnv(t)
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))

		_, err := env.paymentSvc.RecordPayment(context.Background(), RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    decimal.NewFromFloat(100),
		})
		require.NoError(t, err)

		stored, err := env.invoiceSvc.Get(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.InvoiceStatusPaid, stored.Status)
	})

	t.Run("overpayment also counts as paid", func(t *testing.T) {
		env := newTestEnv(t)
		inv := env.createInvoice(t, 50, testNow.AddDate(0, 0, -10))

		_, err := env.paymentSvc.RecordPayment(context.Background(), RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    decimal.NewFromFloat(80),
		})
		require.NoError(t, err)

		stored, err := env.invoiceSvc.Get(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.InvoiceStatusPaid, stored.Status)
	})

	t.Run("rejects payments for an unknown invoice", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.paymentSvc.RecordPayment(context.Background(), RecordPaymentRequest{
			InvoiceID: uuid.New(),
			Amount:    decimal.NewFromFloat(10),
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects a non-positive amount", func(t *testing.T) {
		env := newTestEnv(t)
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))

		_, err := env.paymentSvc.RecordPayment(context.Background(), RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    decimal.Zero,
		})
		assert.Error(t, err)
	})

	t.Run("rejects payments on a cancelled invoice", func(t *testing.T) {
		env := newTestEnv(t)
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))
		_, err := env.invoiceSvc.Cancel(context.Background(), inv.ID)
		require.NoError(t, err)

		_, err = env.paymentSvc.RecordPayment(context.Background(), RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    decimal.NewFromFloat(100),
		})
		require.Error(t, err)

		payments, err := env.paymentSvc.ListByInvoice(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)

		stored, err := env.invoiceSvc.Get(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.InvoiceStatusCancelled, stored.Status)
	})
}

func TestPaymentService_UpdatePayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))

	payment, err := env.paymentSvc.RecordPayment(ctx, RecordPaymentRequest{
		InvoiceID: inv.ID,
		Amount:    decimal.NewFromFloat(100),
	})
	require.NoError(t, err)

	stored, err := env.invoiceSvc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, invoicing.InvoiceStatusPaid, stored.Status)

	t.Run("lowering the amount reopens the invoice", func(t *testing.T) {
		_, err := env.paymentSvc.UpdatePayment(ctx, payment.ID, UpdatePaymentRequest{
			Amount: decimal.NewFromFloat(40),
			Method: "CASH",
		})
		require.NoError(t, err)

		stored, err := env.invoiceSvc.Get(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.InvoiceStatusPending, stored.Status)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := env.paymentSvc.UpdatePayment(ctx, uuid.New(), UpdatePaymentRequest{
			Amount: decimal.NewFromFloat(1),
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestPaymentService_DeletePayment(t *testing.T) {
	t.Run("missing payment is a no-op", func(t *testing.T) {
		env := newTestEnv(t)
		assert.NoError(t, env.paymentSvc.DeletePayment(context.Background(), uuid.New()))
	})

	t.Run("deleting the covering payment reverts paid to overdue", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, -10))

		payment, err := env.paymentSvc.RecordPayment(ctx, RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    decimal.NewFromFloat(100),
		})
		require.NoError(t, err)

		stored, err := env.invoiceSvc.Get(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, invoicing.InvoiceStatusPaid, stored.Status)

		require.NoError(t, env.paymentSvc.DeletePayment(ctx, payment.ID))

		stored, err = env.invoiceSvc.Get(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.InvoiceStatusOverdue, stored.Status)
	})
}

func TestPaymentService_TotalPayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))

	total, err := env.paymentSvc.TotalPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	for _, amount := range []float64{10.50, 20.25} {
		_, err := env.paymentSvc.RecordPayment(ctx, RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    decimal.NewFromFloat(amount),
		})
		require.NoError(t, err)
	}

	total, err = env.paymentSvc.TotalPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.75", total.StringFixed(2))
}

func TestPaymentService_SerializesWithOtherServices(t *testing.T) {
	env := newTestEnv(t)
	inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))

	// Hold the invoice's lock the way a payment recording in flight
	// would; a concurrent cancel must wait for it, not interleave.
	unlock := env.locker.Lock(inv.ID)

	done := make(chan error, 1)
	go func() {
		_, err := env.invoiceSvc.Cancel(context.Background(), inv.ID)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("cancel ran while another service held the invoice lock")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	require.NoError(t, <-done)

	stored, err := env.invoiceRepo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.InvoiceStatusCancelled, stored.Status)
}
