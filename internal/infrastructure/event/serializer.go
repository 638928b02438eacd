package event

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/invoicing/backend/internal/domain/shared"
)

// EventSerializer converts domain events to and from their JSON outbox
// payloads. Deserialization needs the concrete Go type, so every event type
// read back from the outbox must be registered first.
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{types: make(map[string]reflect.Type)}
}

// Register associates eventType with the concrete type of prototype.
// eventType must match what EventType() returns on the event.
func (s *EventSerializer) Register(eventType string, prototype shared.DomainEvent) {
	t := reflect.TypeOf(prototype)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	s.mu.Lock()
	s.types[eventType] = t
	s.mu.Unlock()
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize reconstructs the registered concrete event from its payload.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("deserialized object does not implement DomainEvent")
	}
	return event, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}

func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Keys(s.types))
}
