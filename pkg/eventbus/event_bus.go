// Package eventbus publishes and consumes lifecycle events over watermill.
package eventbus

import (
	"context"

	"github.com/dukex/demodeck/pkg/events"
)

// Event is anything with a lifecycle event type; the concrete types live in pkg/events.
type Event interface {
	GetType() events.EventType
}

// EventPublisher is all the instance store and sync controller need. Publishing is
// best-effort for them: a failed publish is logged, never returned to their callers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventHandler receives a pointer to the decoded concrete event.
type EventHandler func(ctx context.Context, event any) error

// EventSubscriber delivers events by type. Handlers are registered before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	GenerateID() string
	Close() error
}
