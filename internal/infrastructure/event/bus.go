package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/invoicing/backend/internal/domain/shared"
)

// InMemoryEventBus delivers domain events synchronously to subscribed
// handlers within the same process. A failing handler is logged and does
// not stop delivery to the remaining handlers.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish fans each event out to its subscribers in registration order.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes. When none are given, the
// handler's own EventTypes decide; an empty list there means all events.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if b.running.CompareAndSwap(false, true) {
		b.logger.Info("event bus started")
	}
	return nil
}

func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if b.running.CompareAndSwap(true, false) {
		b.logger.Info("event bus stopped")
	}
	return nil
}

// dispatch invokes a handler and converts a panic into a logged failure so
// one misbehaving subscriber cannot take down the publisher.
func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()
	return handler.Handle(ctx, event)
}
