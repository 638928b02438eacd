package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockPaymentRepository(t *testing.T) (*GormPaymentRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormPaymentRepository(gormDB), mock, mockDB
}

func TestGormPaymentRepository_FindByID(t *testing.T) {
	t.Run("finds existing payment", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		paymentID := uuid.New()
		invoiceID := uuid.New()
		now := time.Now().UTC()

		rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "invoice_id", "amount", "payment_date", "method", "reference"}).
			AddRow(paymentID, now, now, invoiceID, decimal.NewFromInt(25), now, "CARD", "ref-1")

		mock.ExpectQuery(`SELECT \* FROM "payments" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(paymentID, 1).
			WillReturnRows(rows)

		payment, err := repo.FindByID(context.Background(), paymentID)

		assert.NoError(t, err)
		require.NotNil(t, payment)
		assert.Equal(t, paymentID, payment.ID)
		assert.Equal(t, invoiceID, payment.InvoiceID)
		assert.Equal(t, "CARD", payment.Method)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for non-existent payment", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		paymentID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "payments" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(paymentID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		payment, err := repo.FindByID(context.Background(), paymentID)

		assert.Nil(t, payment)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentRepository_FindByInvoiceID(t *testing.T) {
	repo, mock, mockDB := newMockPaymentRepository(t)
	defer mockDB.Close()

	invoiceID := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "invoice_id", "amount", "payment_date", "method", "reference"}).
		AddRow(uuid.New(), now, now, invoiceID, decimal.NewFromInt(10), now, "", "").
		AddRow(uuid.New(), now, now, invoiceID, decimal.NewFromInt(20), now, "", "")

	mock.ExpectQuery(`SELECT \* FROM "payments" WHERE invoice_id = \$1 ORDER BY id ASC`).
		WithArgs(invoiceID).
		WillReturnRows(rows)

	payments, err := repo.FindByInvoiceID(context.Background(), invoiceID)

	assert.NoError(t, err)
	assert.Len(t, payments, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPaymentRepository_Delete(t *testing.T) {
	t.Run("returns ErrNotFound when nothing deleted", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		paymentID := uuid.New()

		mock.ExpectExec(`DELETE FROM "payments" WHERE id = \$1`).
			WithArgs(paymentID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), paymentID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
