package event

import (
	"slices"
	"sync"

	"github.com/invoicing/backend/internal/domain/shared"
)

// HandlerRegistry tracks which handlers subscribe to which event types.
// A handler registered without any event types receives every event.
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byType: make(map[string][]shared.EventHandler)}
}

// Register subscribes handler to the given event types, or to all events
// when eventTypes is empty.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}
	for _, et := range eventTypes {
		r.byType[et] = append(r.byType[et], handler)
	}
}

// Unregister drops handler from every subscription, wildcard included.
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = without(r.wildcard, handler)
	for et, hs := range r.byType {
		if hs = without(hs, handler); len(hs) == 0 {
			delete(r.byType, et)
		} else {
			r.byType[et] = hs
		}
	}
}

// GetHandlers returns the handlers subscribed to eventType, with wildcard
// subscribers appended.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Concat(r.byType[eventType], r.wildcard)
}

// GetAllHandlers returns every distinct registered handler.
func (r *HandlerRegistry) GetAllHandlers() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []shared.EventHandler
	seen := make(map[shared.EventHandler]struct{})
	add := func(hs []shared.EventHandler) {
		for _, h := range hs {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			all = append(all, h)
		}
	}
	add(r.wildcard)
	for _, hs := range r.byType {
		add(hs)
	}
	return all
}

func without(hs []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	kept := make([]shared.EventHandler, 0, len(hs))
	for _, h := range hs {
		if h != target {
			kept = append(kept, h)
		}
	}
	return kept
}
