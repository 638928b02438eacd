package invoicing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	t.Run("creates payment with date set to now", func(t *testing.T) {
		p, err := NewPayment(uuid.New(), valueobject.NewMoneyFromFloat(25.50), "card", "TX-100", testNow)
		require.NoError(t, err)
		assert.Equal(t, testNow, p.PaymentDate)
		assert.Equal(t, "25.5", p.Amount.String())
		assert.Equal(t, "card", p.Method)
		assert.Equal(t, "TX-100", p.Reference)
	})

	t.Run("rejects nil invoice id", func(t *testing.T) {
		_, err := NewPayment(uuid.Nil, valueobject.NewMoneyFromFloat(25), "", "", testNow)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), valueobject.Zero(), "", "", testNow)
		assert.Error(t, err)

		_, err = NewPayment(uuid.New(), valueobject.NewMoneyFromFloat(-5), "", "", testNow)
		assert.Error(t, err)
	})
}

func TestPayment_Update(t *testing.T) {
	p, err := NewPayment(uuid.New(), valueobject.NewMoneyFromFloat(25), "card", "", testNow)
	require.NoError(t, err)

	later := testNow.Add(time.Hour)
	require.NoError(t, p.Update(valueobject.NewMoneyFromFloat(30), "cash", "TX-2", later))
	assert.Equal(t, "30", p.Amount.String())
	assert.Equal(t, "cash", p.Method)
	assert.Equal(t, later, p.UpdatedAt)

	assert.Error(t, p.Update(valueobject.Zero(), "", "", later))
}

func TestTotalPayments(t *testing.T) {
	assert.True(t, TotalPayments(nil).IsZero())

	total := TotalPayments(testPayments(30, 20, 50))
	assert.Equal(t, "100", total.String())
}
