package events

import (
	"log"
	"sync"
)

// InMemoryEventBus delivers master-data change events to subscribers.
// Delivery is synchronous and best-effort: a failing handler is logged and
// never blocks the publishing write.
type InMemoryEventBus struct {
	mutex       sync.RWMutex
	subscribers map[string][]EventHandler
}

func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{subscribers: make(map[string][]EventHandler)}
}

// Verify interface compliance
var _ EventBus = (*InMemoryEventBus)(nil)

func (b *InMemoryEventBus) Publish(streamID string, event Event) error {
	delivered := BaseEvent{
		EventType: event.Type(),
		Stream:    streamID,
		EventData: event.Data(),
		EventTime: event.Timestamp(),
	}

	b.mutex.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type()]...)
	b.mutex.RUnlock()

	for _, handler := range handlers {
		if !handler.CanHandle(event.Type()) {
			continue
		}
		if err := handler.Handle(delivered); err != nil {
			log.Printf("events: handler failed for %s: %v", event.Type(), err)
		}
	}
	return nil
}

func (b *InMemoryEventBus) Subscribe(eventTypes []string, handler EventHandler) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	}
	return nil
}
