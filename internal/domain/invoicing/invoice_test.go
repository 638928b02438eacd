package invoicing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func createTestInvoice(t *testing.T, amount float64, dueDate time.Time) *Invoice {
	t.Helper()
	inv, err := NewInvoice("INV-001", "Acme Corp", "Consulting", valueobject.NewMoneyFromFloat(amount), dueDate, testNow)
	require.NoError(t, err)
	return inv
}

func testPayments(amounts ...float64) []Payment {
	payments := make([]Payment, 0, len(amounts))
	for _, a := range amounts {
		payments = append(payments, Payment{
			Amount:      decimal.NewFromFloat(a),
			PaymentDate: testNow,
		})
	}
	return payments
}

func TestNewInvoice(t *testing.T) {
	t.Run("creates invoice with valid inputs", func(t *testing.T) {
		due := testNow.AddDate(0, 0, 30)
		inv, err := NewInvoice("INV-001", "Acme Corp", "Consulting", valueobject.NewMoneyFromFloat(99.99), due, testNow)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, inv.ID)
		assert.Equal(t, "INV-001", inv.InvoiceNumber)
		assert.Equal(t, "Acme Corp", inv.CustomerName)
		assert.Equal(t, InvoiceStatusPending, inv.Status)
		assert.Equal(t, testNow, inv.CreatedAt)
		assert.Equal(t, 1, inv.Version)
		assert.Len(t, inv.GetDomainEvents(), 1)
	})

	t.Run("initial status is pending even with backdated due date", func(t *testing.T) {
		inv := createTestInvoice(t, 50, testNow.AddDate(0, 0, -10))
		assert.Equal(t, InvoiceStatusPending, inv.Status)
	})

	t.Run("rejects empty customer name", func(t *testing.T) {
		_, err := NewInvoice("INV-001", "", "", valueobject.NewMoneyFromFloat(50), testNow.AddDate(0, 0, 30), testNow)
		assert.Error(t, err)
	})

	t.Run("rejects zero due date", func(t *testing.T) {
		_, err := NewInvoice("INV-001", "Acme Corp", "", valueobject.NewMoneyFromFloat(50), time.Time{}, testNow)
		assert.Error(t, err)
	})

	t.Run("amount bounds", func(t *testing.T) {
		tests := []struct {
			name    string
			amount  float64
			wantErr bool
		}{
			{"zero amount rejected", 0, true},
			{"negative amount rejected", -10, true},
			{"smallest positive amount accepted", 0.01, false},
			{"upper bound accepted", 100, false},
			{"above upper bound rejected", 100.01, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewInvoice("INV-001", "Acme Corp", "", valueobject.NewMoneyFromFloat(tt.amount), testNow.AddDate(0, 0, 30), testNow)
				if tt.wantErr {
					require.Error(t, err)
					var domainErr *shared.DomainError
					assert.ErrorAs(t, err, &domainErr)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})
}

func TestInvoice_RemainingAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		payments []float64
		expected string
	}{
		{"no payments", 100, nil, "100"},
		{"partial payment", 100, []float64{30}, "70"},
		{"multiple payments sum to zero remaining", 100, []float64{30, 20, 50}, "0"},
		{"overpayment goes negative", 100, []float64{60, 60}, "-20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := createTestInvoice(t, tt.amount, testNow.AddDate(0, 0, 30))
			remaining := inv.RemainingAmount(testPayments(tt.payments...))
			assert.Equal(t, tt.expected, remaining.String())
		})
	}
}

func TestInvoice_IsPaid(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		payments []float64
		expected bool
	}{
		{"no payments", 100, nil, false},
		{"partially paid", 100, []float64{99.99}, false},
		{"exactly paid", 100, []float64{30, 20, 50}, true},
		{"overpaid", 100, []float64{150}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := createTestInvoice(t, tt.amount, testNow.AddDate(0, 0, 30))
			assert.Equal(t, tt.expected, inv.IsPaid(testPayments(tt.payments...)))
		})
	}
}

func TestInvoice_IsOverdue(t *testing.T) {
	t.Run("past due and unpaid", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, -5))
		assert.True(t, inv.IsOverdue(nil, testNow))
	})

	t.Run("past due but fully paid", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, -5))
		assert.False(t, inv.IsOverdue(testPayments(100), testNow))
	})

	t.Run("due date exactly now is not overdue", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow)
		assert.False(t, inv.IsOverdue(nil, testNow))
	})

	t.Run("due in the future", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, 5))
		assert.False(t, inv.IsOverdue(nil, testNow))
	})

	t.Run("overdue implies not paid", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, -5))
		payments := testPayments(60, 60)
		assert.True(t, inv.IsPaid(payments))
		assert.False(t, inv.IsOverdue(payments, testNow))
	})

	t.Run("result changes as now advances", func(t *testing.T) {
		due := testNow.AddDate(0, 0, 1)
		inv := createTestInvoice(t, 100, due)
		assert.False(t, inv.IsOverdue(nil, testNow))
		assert.True(t, inv.IsOverdue(nil, due.Add(time.Hour)))
	})
}

func TestDaysOverdue(t *testing.T) {
	t.Run("counts calendar days regardless of time of day", func(t *testing.T) {
		// Due two weeks ago in the evening: the raw instant delta to noon
		// today is under 14 full days, but 14 calendar days have passed.
		due := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
		inv := createTestInvoice(t, 100, due)
		assert.Equal(t, 14, inv.DaysOverdue(testNow))
	})

	t.Run("zero on the due date itself", func(t *testing.T) {
		due := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
		inv := createTestInvoice(t, 100, due)
		assert.Equal(t, 0, inv.DaysOverdue(testNow))
	})

	t.Run("negative before the due date", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, 5))
		assert.Equal(t, -5, inv.DaysOverdue(testNow))
	})
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		dueDate  time.Time
		payments []float64
		expected InvoiceStatus
	}{
		{"unpaid before due date", testNow.AddDate(0, 0, 10), nil, InvoiceStatusPending},
		{"unpaid past due date", testNow.AddDate(0, 0, -1), nil, InvoiceStatusOverdue},
		{"paid before due date", testNow.AddDate(0, 0, 10), []float64{100}, InvoiceStatusPaid},
		{"paid takes priority over overdue", testNow.AddDate(0, 0, -10), []float64{100}, InvoiceStatusPaid},
		{"overpaid past due date", testNow.AddDate(0, 0, -10), []float64{120}, InvoiceStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := createTestInvoice(t, 100, tt.dueDate)
			assert.Equal(t, tt.expected, DeriveStatus(inv, testPayments(tt.payments...), testNow))
		})
	}

	t.Run("cancelled is preserved", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, -10))
		inv.Cancel(testNow)
		assert.Equal(t, InvoiceStatusCancelled, DeriveStatus(inv, testPayments(100), testNow))
	})
}

func TestInvoice_RecomputeStatus(t *testing.T) {
	t.Run("moves pending to overdue", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, -5))
		inv.RecomputeStatus(nil, testNow)
		assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	})

	t.Run("is idempotent", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, -5))
		inv.RecomputeStatus(nil, testNow)
		first := inv.Status
		inv.RecomputeStatus(nil, testNow)
		assert.Equal(t, first, inv.Status)
	})

	t.Run("does not touch cancelled invoice", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, -5))
		inv.Cancel(testNow)
		inv.RecomputeStatus(testPayments(100), testNow)
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	})
}

func TestInvoice_UpdateDetails(t *testing.T) {
	t.Run("updates fields and bumps version", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, 5))
		newDue := testNow.AddDate(0, 0, 20)

		err := inv.UpdateDetails("New Name", "Updated", newDue, testNow)
		require.NoError(t, err)
		assert.Equal(t, "New Name", inv.CustomerName)
		assert.Equal(t, newDue, inv.DueDate)
		assert.Equal(t, 2, inv.Version)
	})

	t.Run("rejected on cancelled invoice", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, 5))
		inv.Cancel(testNow)
		err := inv.UpdateDetails("New Name", "", testNow.AddDate(0, 0, 20), testNow)
		assert.Error(t, err)
	})

	t.Run("rejects empty customer name", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, 5))
		assert.Error(t, inv.UpdateDetails("", "", testNow.AddDate(0, 0, 20), testNow))
	})
}

func TestInvoice_Cancel(t *testing.T) {
	t.Run("sets cancelled status", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, 5))
		inv.Cancel(testNow)
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	})

	t.Run("idempotent on already cancelled", func(t *testing.T) {
		inv := createTestInvoice(t, 100, testNow.AddDate(0, 0, 5))
		inv.Cancel(testNow)
		version := inv.Version
		inv.Cancel(testNow)
		assert.Equal(t, version, inv.Version)
	})
}

func TestInvoiceStatus(t *testing.T) {
	t.Run("valid statuses", func(t *testing.T) {
		for _, s := range []InvoiceStatus{InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled} {
			assert.True(t, s.IsValid(), s.String())
		}
		assert.False(t, InvoiceStatus("UNKNOWN").IsValid())
	})

	t.Run("only cancelled is terminal", func(t *testing.T) {
		assert.True(t, InvoiceStatusCancelled.IsTerminal())
		assert.False(t, InvoiceStatusPending.IsTerminal())
		assert.False(t, InvoiceStatusPaid.IsTerminal())
		assert.False(t, InvoiceStatusOverdue.IsTerminal())
	})
}
