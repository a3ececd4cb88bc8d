package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Handler processes a single event. Handlers run synchronously on the
// publisher's goroutine; a handler error is returned to the publisher.
type Handler func(ctx context.Context, event Event) error

// Bus delivers events to subscribed handlers.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType string, handler Handler)
}

// InMemoryBus is a synchronous, in-process Bus. Handlers for an event type
// run sequentially in subscription order; all handler errors are joined and
// returned so the caller observes downstream failures.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// NewInMemoryBus creates a new InMemoryBus.
func NewInMemoryBus(logger *slog.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type.
func (b *InMemoryBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers the event to every handler subscribed to its type.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.EventType()]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		if b.logger != nil {
			b.logger.Debug("no handlers for event", slog.String("event_type", event.EventType()))
		}
		return nil
	}

	var handlerErrors []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			handlerErrors = append(handlerErrors, err)
		}
	}

	return errors.Join(handlerErrors...)
}
