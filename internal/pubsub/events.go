// Package pubsub provides a generic publish/subscribe event system.
//
// Host notifications (document changed, document about to save, configuration
// changed) and annotation lifecycle transitions all travel through a Broker.
// A subscription lives exactly as long as the context passed to Subscribe.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// CreatedEvent announces a new value (log entries use it).
	CreatedEvent EventType = "created"
	// ChangedEvent announces that a document's text changed.
	ChangedEvent EventType = "changed"
	// SavingEvent announces that a document is about to be saved.
	SavingEvent EventType = "saving"
	// ConfigEvent announces that a configuration section changed.
	ConfigEvent EventType = "config"
	// ActivatedEvent announces that a highlight cycle became active.
	ActivatedEvent EventType = "activated"
	// RetiredEvent announces that a highlight cycle was retired.
	RetiredEvent EventType = "retired"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// LatestSubscriber is a Subscriber that can also hand out subscriptions
// holding only the newest undelivered event. Consumers that act on current
// state use it so a burst of events cannot push out the one that matters.
type LatestSubscriber[T any] interface {
	Subscriber[T]
	SubscribeLatest(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T) int
}
