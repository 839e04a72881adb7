package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

// ResponseCachePattern matches every cached list response
const ResponseCachePattern = "http:cache:*"

const eventTimeout = 30 * time.Second

// IndexEventSubscriber keeps the embedding documents, the business geo index
// and the response cache in step with entity change events.
type IndexEventSubscriber struct {
	eventBus   providers.EventBus
	indexer    EntityIndexer
	businesses repositories.BusinessRepository
	geo        BusinessGeoIndex
	cache      providers.CacheProvider
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	started    bool
}

// NewIndexEventSubscriber creates a new subscriber. geo and cache may be nil.
func NewIndexEventSubscriber(
	eventBus providers.EventBus,
	indexer EntityIndexer,
	businesses repositories.BusinessRepository,
	geo BusinessGeoIndex,
	cache providers.CacheProvider,
) *IndexEventSubscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &IndexEventSubscriber{
		eventBus:   eventBus,
		indexer:    indexer,
		businesses: businesses,
		geo:        geo,
		cache:      cache,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start begins consuming entity change events
func (s *IndexEventSubscriber) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelEntityChanged)
	if err != nil {
		return fmt.Errorf("failed to subscribe to entity changes: %w", err)
	}

	s.started = true
	go s.processEvents(eventChan)
	observability.GetLogger().Info().Str("channel", providers.EventChannelEntityChanged).Msg("index event subscriber started")
	return nil
}

// Stop stops consuming events and waits for the in-flight event
func (s *IndexEventSubscriber) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
	observability.GetLogger().Info().Msg("index event subscriber stopped")
}

func (s *IndexEventSubscriber) processEvents(eventChan <-chan *entities.EntityEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *IndexEventSubscriber) handleEvent(event *entities.EntityEvent) {
	ctx, cancel := context.WithTimeout(s.ctx, eventTimeout)
	defer cancel()

	logger := observability.GetLogger().With().
		Str("event_id", event.ID).
		Str("entity_type", string(event.EntityType)).
		Str("entity_id", event.EntityID).
		Str("action", string(event.Action)).
		Logger()

	var err error
	switch event.Action {
	case entities.EntityActionUpserted:
		err = s.upserted(ctx, event)
	case entities.EntityActionDeleted:
		err = s.deleted(ctx, event)
	default:
		logger.Warn().Msg("ignoring entity event with unknown action")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to apply entity event")
	} else {
		logger.Debug().Msg("applied entity event")
	}

	if s.cache != nil {
		if err := s.cache.DeletePattern(ctx, ResponseCachePattern); err != nil {
			logger.Warn().Err(err).Msg("failed to invalidate response cache")
		}
	}
}

func (s *IndexEventSubscriber) upserted(ctx context.Context, event *entities.EntityEvent) error {
	_, err := s.indexer.IndexEntity(ctx, event.EntityType, event.EntityID)
	if apperrors.IsNotFound(err) {
		// Deleted again before the event arrived
		return s.deleted(ctx, event)
	}
	if err != nil {
		return err
	}

	if event.EntityType != entities.EntityTypeBusiness || s.geo == nil {
		return nil
	}
	b, err := s.businesses.GetByID(ctx, event.EntityID)
	if err != nil {
		return err
	}
	return s.geo.Index(ctx, b)
}

func (s *IndexEventSubscriber) deleted(ctx context.Context, event *entities.EntityEvent) error {
	if err := s.indexer.RemoveEntity(ctx, event.EntityType, event.EntityID); err != nil {
		return err
	}
	if event.EntityType == entities.EntityTypeBusiness && s.geo != nil {
		return s.geo.Delete(ctx, event.EntityID)
	}
	return nil
}
