package ports

import "context"

// DomainEvent represents a significant occurrence within the host. Events
// carry structured payloads that subscribers use for logging, UI updates or
// vetoing an action.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// StoppableEvent is a DomainEvent whose delivery can be halted by a handler.
// Publishers stop calling handlers once Stopped reports true.
type StoppableEvent interface {
	DomainEvent
	StopPropagation()
	Stopped() bool
}

// EventPublisher distributes events to interested subscribers. Dispatch is
// synchronous: Publish returns after every handler ran or propagation was
// stopped. Implementations must be thread-safe.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes an event of a specific type. Failures should be
// returned rather than panicked so publishers can log them and continue.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler. Callers invoke Unsubscribe to
// stop receiving events.
type Subscription interface {
	Unsubscribe()
}
