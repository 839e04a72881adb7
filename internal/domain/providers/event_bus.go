package providers

import (
	"context"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

// EventChannelEntityChanged carries every create, update and delete of a
// searchable entity
const EventChannelEntityChanged = "entity.changed"

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.EntityEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.EntityEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}
