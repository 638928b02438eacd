package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingEventHandler_CapturesEvents(t *testing.T) {
	handler := NewRecordingEventHandler("invoicing.invoice.created")

	assert.Equal(t, []string{"invoicing.invoice.created"}, handler.EventTypes())
	assert.Zero(t, handler.Count())

	event := NewStubEvent("invoicing.invoice.created")
	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Equal(t, 1, handler.Count())
	assert.Equal(t, event, handler.Events()[0])
}

func TestRecordingEventHandler_Fail(t *testing.T) {
	handler := NewRecordingEventHandler("invoicing.invoice.created")
	handler.Fail(assert.AnError)

	err := handler.Handle(context.Background(), NewStubEvent("invoicing.invoice.created"))

	assert.Equal(t, assert.AnError, err)
	assert.Equal(t, 1, handler.Count())
}

func TestRecordingEventHandler_Reset(t *testing.T) {
	handler := NewRecordingEventHandler("invoicing.invoice.created")
	handler.Fail(assert.AnError)
	_ = handler.Handle(context.Background(), NewStubEvent("invoicing.invoice.created"))

	handler.Reset()

	assert.Zero(t, handler.Count())
	assert.NoError(t, handler.Handle(context.Background(), NewStubEvent("invoicing.invoice.created")))
}

func TestNewStubEvent(t *testing.T) {
	event := NewStubEvent("invoicing.payment.recorded")

	assert.NotEqual(t, uuid.Nil, event.EventID())
	assert.Equal(t, "invoicing.payment.recorded", event.EventType())
	assert.Equal(t, "Invoice", event.AggregateType())
	assert.False(t, event.OccurredAt().IsZero())
}

func TestNewStubEventWithID(t *testing.T) {
	eventID := uuid.New()

	first := NewStubEventWithID(eventID, "invoicing.invoice.created")
	second := NewStubEventWithID(eventID, "invoicing.invoice.created")

	assert.Equal(t, eventID, first.EventID())
	assert.Equal(t, first.EventID(), second.EventID())
}

func TestWaitForCondition(t *testing.T) {
	t.Run("condition met", func(t *testing.T) {
		var flag atomic.Bool
		go func() {
			time.Sleep(20 * time.Millisecond)
			flag.Store(true)
		}()

		assert.True(t, WaitForCondition(t, flag.Load, 200*time.Millisecond, 10*time.Millisecond))
	})

	t.Run("timeout", func(t *testing.T) {
		met := WaitForCondition(t, func() bool { return false }, 50*time.Millisecond, 10*time.Millisecond)
		assert.False(t, met)
	})
}

func TestWaitForEventCount(t *testing.T) {
	handler := NewRecordingEventHandler("invoicing.invoice.created")

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = handler.Handle(context.Background(), NewStubEvent("invoicing.invoice.created"))
		_ = handler.Handle(context.Background(), NewStubEvent("invoicing.invoice.created"))
	}()

	assert.True(t, WaitForEventCount(t, handler, 2, 200*time.Millisecond))
}
