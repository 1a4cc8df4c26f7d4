// Package eventbus carries workflow lifecycle events over a watermill publisher/subscriber pair.
package eventbus

import (
	"context"
	"errors"

	"github.com/dukex/otomato/pkg/events"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Event is any lifecycle payload from pkg/events.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends an event under key, which is the workflow or draft id
// the event is about.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives the decoded event as a pointer to its pkg/events
// struct along with the key it was published under. A returned error
// redelivers the message.
type EventHandler func(ctx context.Context, key string, event Event) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
