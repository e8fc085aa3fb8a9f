// Package events provides event bus infrastructure for decoupled,
// event-driven communication between modules.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"sabcare_backend/platform/logger"
)

// asyncHandlerTimeout bounds how long an async handler may run after the
// publishing request has already returned.
const asyncHandlerTimeout = 30 * time.Second

// InMemoryBus is a synchronous/asynchronous in-process event bus.
// Handlers registered for an event name receive every published event of
// that name. Publish runs handlers in a detached goroutine; PublishSync
// runs them inline and collects errors.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish delivers the event to all handlers asynchronously. Handler
// errors are logged, never propagated to the publisher.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	handlers := b.handlersFor(event.EventName())
	if len(handlers) == 0 {
		return
	}

	go func() {
		// Detach from the request context so in-flight handlers survive
		// the originating request completing.
		detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncHandlerTimeout)
		defer cancel()

		for _, handler := range handlers {
			if err := handler.Handle(detached, event); err != nil && b.log != nil {
				b.log.Error("event handler failed",
					"event", event.EventName(),
					"error", err,
				)
			}
		}
	}()
}

// PublishSync delivers the event to all handlers inline and returns the
// combined error, if any handler failed.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	handlers := b.handlersFor(event.EventName())

	var errs []error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryBus) handlersFor(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	registered := b.handlers[eventName]
	handlers := make([]Handler, len(registered))
	copy(handlers, registered)
	return handlers
}

// Compile-time check that InMemoryBus implements Bus.
var _ Bus = (*InMemoryBus)(nil)
