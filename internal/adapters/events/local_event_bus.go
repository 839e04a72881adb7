package events

import (
	"context"
	"sync"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
)

// LocalEventBus delivers events inside one process. It backs DB_DRIVER=memory.
type LocalEventBus struct {
	local  *fanout
	once   sync.Once
	closed chan struct{}
}

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() providers.EventBus {
	return &LocalEventBus{local: newFanout(), closed: make(chan struct{})}
}

// Publish delivers event to current subscribers of channel
func (b *LocalEventBus) Publish(ctx context.Context, channel string, event *entities.EntityEvent) error {
	if dropped := b.local.broadcast(channel, event); dropped > 0 {
		observability.LoggerFromContext(ctx).Warn().Str("channel", channel).Int("dropped", dropped).
			Msg("subscriber queue full, event skipped")
	}
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.EntityEvent, error) {
	ch, _ := b.local.add(channel)
	go func() {
		select {
		case <-ctx.Done():
		case <-b.closed:
		}
		b.local.remove(channel, ch)
	}()
	return ch, nil
}

// Unsubscribe closes every subscriber of channel
func (b *LocalEventBus) Unsubscribe(_ context.Context, channel string) error {
	b.local.closeChannel(channel)
	return nil
}

// Close closes all subscriptions
func (b *LocalEventBus) Close() error {
	b.once.Do(func() {
		close(b.closed)
		for _, channel := range b.local.channels() {
			b.local.closeChannel(channel)
		}
	})
	return nil
}
