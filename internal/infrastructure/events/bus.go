package events

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Bus is a synchronous, in-process publish/subscribe service. Handlers run in
// subscription order on the publisher's goroutine; wildcard handlers run after
// type-specific ones. A handler may halt delivery of a ports.StoppableEvent.
type Bus struct {
	logger ports.Logger
	subs   map[string][]subscriptionEntry
	nextID *atomic.Uint64
	mu     sync.RWMutex
}

// NewBus creates an event bus that records each delivery at debug level.
func NewBus(logger ports.Logger) *Bus {
	return &Bus{
		logger: logging.OrNoOp(logger),
		subs:   make(map[string][]subscriptionEntry),
		nextID: atomic.NewUint64(0),
	}
}

// Publish delivers event to its subscribers. Handler errors and panics are
// logged and do not prevent delivery to the remaining handlers.
func (b *Bus) Publish(ctx context.Context, event ports.DomainEvent) error {
	if b == nil || event == nil {
		return nil
	}

	b.mu.RLock()
	handlers := append([]subscriptionEntry(nil), b.subs[event.EventType()]...)
	handlers = append(handlers, b.subs[Wildcard]...)
	b.mu.RUnlock()

	b.logger.Debug(ctx, "event published", append([]interface{}{"event_type", event.EventType(), "handlers", len(handlers)}, payloadFields(event.Payload())...)...)

	stoppable, _ := event.(ports.StoppableEvent)
	for _, entry := range handlers {
		if err := b.invoke(ctx, entry.handler, event); err != nil {
			b.logger.Warn(ctx, "event handler failed", "event_type", event.EventType(), "subscription", entry.id, "error", err)
		}
		if stoppable != nil && stoppable.Stopped() {
			b.logger.Debug(ctx, "event propagation stopped", "event_type", event.EventType(), "subscription", entry.id)
			break
		}
	}

	return nil
}

func (b *Bus) invoke(ctx context.Context, handler ports.EventHandler, event ports.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers a handler for the provided event type, or for every
// type when eventType is Wildcard.
func (b *Bus) Subscribe(eventType string, handler ports.EventHandler) (ports.Subscription, error) {
	if b == nil {
		return noopSubscription{}, nil
	}
	if handler == nil {
		return noopSubscription{}, fmt.Errorf("subscribe %q: nil handler", eventType)
	}

	id := b.nextID.Inc()
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], subscriptionEntry{id: id, handler: handler})
	b.mu.Unlock()

	return subscription{
		cancel: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			handlers := b.subs[eventType]
			for i, entry := range handlers {
				if entry.id == id {
					b.subs[eventType] = append(handlers[:i:i], handlers[i+1:]...)
					break
				}
			}
		},
	}, nil
}

// Len reports the number of handlers subscribed to eventType.
func (b *Bus) Len(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

func payloadFields(payload interface{}) []interface{} {
	switch p := payload.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		keys := make([]string, 0, len(p))
		for key := range p {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fields := make([]interface{}, 0, len(keys)*2)
		for _, key := range keys {
			fields = append(fields, key, p[key])
		}
		return fields
	case fmt.Stringer:
		return []interface{}{"payload", p.String()}
	default:
		return nil
	}
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type subscription struct {
	cancel func()
}

func (s subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type subscriptionEntry struct {
	id      uint64
	handler ports.EventHandler
}

var _ ports.EventPublisher = (*Bus)(nil)
