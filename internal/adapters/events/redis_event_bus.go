package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	redisclient "github.com/zatekoja/localdiscovery/internal/infrastructure/clients/redis"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
)

// RedisEventBus implements the EventBus interface using Redis Pub/Sub.
// One Redis subscription per channel feeds every local subscriber.
type RedisEventBus struct {
	client        *redisclient.Client
	local         *fanout
	mu            sync.Mutex
	subscriptions map[string]*redis.PubSub
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		local:         newFanout(),
		subscriptions: make(map[string]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.EntityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("entity_type", string(event.EntityType)).
		Str("entity_id", event.EntityID).
		Msg("published event")
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.EntityEvent, error) {
	ch, first := b.local.add(channel)
	if first {
		b.mu.Lock()
		if _, exists := b.subscriptions[channel]; !exists {
			pubsub := b.client.Client().Subscribe(b.ctx, channel)
			b.subscriptions[channel] = pubsub
			go b.receive(channel, pubsub)
		}
		b.mu.Unlock()
	}

	observability.LoggerFromContext(ctx).Info().
		Str("channel", channel).
		Int("subscribers", b.local.count(channel)).
		Msg("subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		if b.local.remove(channel, ch) {
			b.closeSubscription(channel)
		}
	}()

	return ch, nil
}

// receive decodes messages from Redis and fans them out locally
func (b *RedisEventBus) receive(channel string, pubsub *redis.PubSub) {
	logger := observability.GetLogger()

	messages := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event entities.EntityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn().Err(err).Str("channel", channel).Msg("failed to decode event")
				continue
			}
			if dropped := b.local.broadcast(channel, &event); dropped > 0 {
				logger.Warn().Str("channel", channel).Str("event_id", event.ID).Int("dropped", dropped).
					Msg("subscriber queue full, event skipped")
			}
		}
	}
}

func (b *RedisEventBus) closeSubscription(channel string) error {
	b.mu.Lock()
	pubsub, ok := b.subscriptions[channel]
	delete(b.subscriptions, channel)
	b.mu.Unlock()

	if !ok {
		return nil
	}
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	observability.GetLogger().Info().Str("channel", channel).Msg("closed subscription")
	return nil
}

// Unsubscribe drops every local subscriber of channel and its Redis subscription
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.local.closeChannel(channel)
	return b.closeSubscription(channel)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	channels := make([]string, 0, len(b.subscriptions))
	for channel := range b.subscriptions {
		channels = append(channels, channel)
	}
	b.mu.Unlock()
	channels = append(channels, b.local.channels()...)

	var errs []error
	for _, channel := range channels {
		if err := b.Unsubscribe(context.Background(), channel); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing event bus: %w", err)
	}

	observability.GetLogger().Info().Msg("event bus closed")
	return nil
}
