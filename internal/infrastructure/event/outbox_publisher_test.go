package event

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/invoicing/backend/internal/domain/shared"
)

func newSQLMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       conn,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func invoiceEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register("invoicing.invoice.created", &testEvent{})
	return s
}

func expectOutboxInsert(mock sqlmock.Sqlmock, events ...shared.DomainEvent) {
	rows := sqlmock.NewRows([]string{"created_at", "updated_at"})
	for _, e := range events {
		rows.AddRow(e.OccurredAt(), e.OccurredAt())
	}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).WillReturnRows(rows)
}

func TestOutboxPublisher_PublishWithTx(t *testing.T) {
	db, mock := newSQLMockDB(t)
	publisher := NewOutboxPublisher(invoiceEventSerializer())

	event := newTestEvent("invoicing.invoice.created")

	mock.ExpectBegin()
	expectOutboxInsert(mock, event)
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(context.Background(), tx, event)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_PublishWithTx_Batch(t *testing.T) {
	db, mock := newSQLMockDB(t)
	publisher := NewOutboxPublisher(invoiceEventSerializer())

	events := []shared.DomainEvent{
		newTestEvent("invoicing.invoice.created"),
		newTestEvent("invoicing.invoice.created"),
		newTestEvent("invoicing.invoice.created"),
	}

	mock.ExpectBegin()
	expectOutboxInsert(mock, events...)
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(context.Background(), tx, events...)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_PublishWithTx_NoEvents(t *testing.T) {
	db, mock := newSQLMockDB(t)
	publisher := NewOutboxPublisher(NewEventSerializer())

	// No insert expected when there is nothing to stage.
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(context.Background(), tx)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_PublishWithTx_RollsBackWithCaller(t *testing.T) {
	db, mock := newSQLMockDB(t)
	publisher := NewOutboxPublisher(invoiceEventSerializer())

	event := newTestEvent("invoicing.invoice.created")

	mock.ExpectBegin()
	expectOutboxInsert(mock, event)
	mock.ExpectRollback()

	boom := errors.New("invoice validation failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.PublishWithTx(context.Background(), tx, event); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
