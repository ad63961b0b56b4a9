// Package messaging implements the in-memory event bus that carries domain
// events (XP grants, rank changes, session closures) to their subscribers.
// Dispatch is synchronous: events for one community/user pair are observed in
// the order they were published, which the accrual ordering guarantee relies
// on. Suitable for the single-instance deployment model.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// ErrEventBusClosed is returned when publishing to a closed bus.
var ErrEventBusClosed = errors.New("messaging: event bus is closed")

// EventBus is a synchronous in-memory implementation of
// shared.EventPublisher and shared.EventSubscriber.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[shared.EventType][]shared.EventHandler
	logger   *slog.Logger
	metrics  *Metrics
	closed   bool
}

// NewEventBus creates a new event bus. metrics may be nil to disable
// instrumentation.
func NewEventBus(logger *slog.Logger, metrics *Metrics) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		logger:   logger,
		metrics:  metrics,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *EventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// Publish delivers the event to every subscriber of its type, in
// subscription order. A failing handler is logged and counted but does not
// stop delivery to the remaining handlers; the first failure is returned.
func (b *EventBus) Publish(ctx context.Context, event shared.Event) error {
	if event == nil {
		return errors.New("messaging: event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, len(b.handlers[event.EventType()]))
	copy(handlers, b.handlers[event.EventType()])
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.Published(event.EventType())
	}

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			if b.metrics != nil {
				b.metrics.HandlerError(event.EventType())
			}
			b.logger.Error("event handler failed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"error", err,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("messaging: handler for %s: %w", event.EventType(), err)
			}
		}
	}
	return firstErr
}

// Close stops the bus. Further publishes and subscriptions fail.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
