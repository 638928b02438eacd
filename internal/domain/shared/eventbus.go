package shared

import "context"

// EventHandler consumes domain events. EventTypes declares the types the
// handler wants; an empty slice subscribes it to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher delivers domain events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler subscriptions. Subscribing without event
// types makes the handler a wildcard receiver.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the full pub/sub surface plus lifecycle control for any
// background delivery machinery.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver stages domain events in the outbox table. txProvider is
// the repository's open transaction, in practice a *gorm.DB, so the staged
// rows commit or roll back with the aggregate change.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
