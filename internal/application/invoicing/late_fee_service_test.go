package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLateFeeService_Calculate(t *testing.T) {
	onePercent := decimal.NewFromInt(1)

	t.Run("computes the fee from the remaining amount", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, -10))

		fee, err := env.lateFeeSvc.Calculate(ctx, inv.ID, time.Time{}, onePercent)
		require.NoError(t, err)
		assert.Equal(t, "1.00", fee.StringFixed(2))

		t.Run("partial payment shrinks the base", func(t *testing.T) {
			_, err := env.paymentSvc.RecordPayment(ctx, RecordPaymentRequest{
				InvoiceID: inv.ID,
				Amount:    decimal.NewFromFloat(60),
			})
			require.NoError(t, err)

			fee, err := env.lateFeeSvc.Calculate(ctx, inv.ID, time.Time{}, onePercent)
			require.NoError(t, err)
			assert.Equal(t, "0.40", fee.StringFixed(2))
		})
	})

	t.Run("zero when the cutoff is not past the due date", func(t *testing.T) {
		env := newTestEnv(t)
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, -10))

		fee, err := env.lateFeeSvc.Calculate(context.Background(), inv.ID, testNow.AddDate(0, 0, -20), onePercent)
		require.NoError(t, err)
		assert.True(t, fee.IsZero())
	})

	t.Run("zero when the invoice is not overdue", func(t *testing.T) {
		env := newTestEnv(t)
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))

		fee, err := env.lateFeeSvc.Calculate(context.Background(), inv.ID, time.Time{}, onePercent)
		require.NoError(t, err)
		assert.True(t, fee.IsZero())
	})

	t.Run("not found", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.lateFeeSvc.Calculate(context.Background(), uuid.New(), time.Time{}, onePercent)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestLateFeeService_Apply(t *testing.T) {
	fivePercent := decimal.NewFromInt(5)

	t.Run("assesses a fee on an overdue invoice", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, -10))

		fee, err := env.lateFeeSvc.Apply(ctx, ApplyLateFeeRequest{
			InvoiceID:     inv.ID,
			FeePercentage: fivePercent,
			Description:   "Late fee",
		})
		require.NoError(t, err)
		assert.Equal(t, "5.00", fee.Amount.StringFixed(2))
		assert.Equal(t, testNow, fee.AppliedDate)

		t.Run("a second fee the same day is rejected", func(t *testing.T) {
			_, err := env.lateFeeSvc.Apply(ctx, ApplyLateFeeRequest{
				InvoiceID:     inv.ID,
				FeePercentage: fivePercent,
			})
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, "NOT_ELIGIBLE", domainErr.Code)

			fees, err := env.lateFeeSvc.ListByInvoice(ctx, inv.ID)
			require.NoError(t, err)
			assert.Len(t, fees, 1)
		})

		t.Run("eligible again the next day", func(t *testing.T) {
			env.clock.Advance(24 * time.Hour)
			_, err := env.lateFeeSvc.Apply(ctx, ApplyLateFeeRequest{
				InvoiceID:     inv.ID,
				FeePercentage: fivePercent,
			})
			require.NoError(t, err)

			fees, err := env.lateFeeSvc.ListByInvoice(ctx, inv.ID)
			require.NoError(t, err)
			assert.Len(t, fees, 2)
		})
	})

	t.Run("rejected when the invoice is not overdue", func(t *testing.T) {
		env := newTestEnv(t)
		inv := env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))

		_, err := env.lateFeeSvc.Apply(context.Background(), ApplyLateFeeRequest{
			InvoiceID:     inv.ID,
			FeePercentage: fivePercent,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_ELIGIBLE", domainErr.Code)
	})
}

func TestLateFeeService_InvoicesEligible(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	overdue := env.createInvoice(t, 100, testNow.AddDate(0, 0, -10))
	feeToday := env.createInvoice(t, 100, testNow.AddDate(0, 0, -5))
	paid := env.createInvoice(t, 50, testNow.AddDate(0, 0, -3))
	env.createInvoice(t, 100, testNow.AddDate(0, 0, 10))

	_, err := env.lateFeeSvc.Apply(ctx, ApplyLateFeeRequest{
		InvoiceID:     feeToday.ID,
		FeePercentage: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	_, err = env.paymentSvc.RecordPayment(ctx, RecordPaymentRequest{
		InvoiceID: paid.ID,
		Amount:    decimal.NewFromFloat(50),
	})
	require.NoError(t, err)

	eligible, err := env.lateFeeSvc.InvoicesEligible(ctx)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, overdue.ID, eligible[0].ID)
}
