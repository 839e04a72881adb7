package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
)

// EntityIndexer maintains the embedding document of one entity
type EntityIndexer interface {
	IndexEntity(ctx context.Context, entityType entities.EntityType, entityID string) (string, error)
	RemoveEntity(ctx context.Context, entityType entities.EntityType, entityID string) error
}

// BusinessGeoIndex is a secondary nearest-neighbor index of businesses
type BusinessGeoIndex interface {
	Index(ctx context.Context, b *entities.Business) error
	Delete(ctx context.Context, id string) error
}

// ReindexReport summarizes one bulk run
type ReindexReport struct {
	EntityType entities.EntityType `json:"entityType"`
	Indexed    int                 `json:"indexed"`
	Failed     int                 `json:"failed"`
}

// ReindexService re-embeds every entity of a type on a bounded worker pool
type ReindexService struct {
	businesses repositories.BusinessRepository
	sales      repositories.SaleAdRepository
	promos     repositories.PromoAdRepository
	indexer    EntityIndexer
	geo        BusinessGeoIndex
	workers    int
	batchSize  int
}

// NewReindexService creates a new reindex service. geo may be nil.
func NewReindexService(
	businesses repositories.BusinessRepository,
	sales repositories.SaleAdRepository,
	promos repositories.PromoAdRepository,
	indexer EntityIndexer,
	geo BusinessGeoIndex,
	workers, batchSize int,
) *ReindexService {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &ReindexService{
		businesses: businesses,
		sales:      sales,
		promos:     promos,
		indexer:    indexer,
		geo:        geo,
		workers:    workers,
		batchSize:  batchSize,
	}
}

// Reindex indexes every entity of entityType. Per-entity failures are logged
// and counted; only listing failures abort the run.
func (s *ReindexService) Reindex(ctx context.Context, entityType entities.EntityType) (ReindexReport, error) {
	report := ReindexReport{EntityType: entityType}

	listIDs, err := s.lister(entityType)
	if err != nil {
		return report, err
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return report, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	logger := observability.LoggerFromContext(ctx)
	var (
		wg              sync.WaitGroup
		indexed, failed atomic.Int64
	)

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			report.Indexed, report.Failed = int(indexed.Load()), int(failed.Load())
			return report, err
		}

		ids, err := listIDs(ctx, afterID, s.batchSize)
		if err != nil {
			wg.Wait()
			report.Indexed, report.Failed = int(indexed.Load()), int(failed.Load())
			return report, asAppError("failed to list entity ids", err)
		}
		if len(ids) == 0 {
			break
		}
		afterID = ids[len(ids)-1]

		for _, id := range ids {
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				if err := s.indexOne(ctx, entityType, id); err != nil {
					failed.Add(1)
					logger.Warn().Err(err).Str("entity_type", string(entityType)).Str("entity_id", id).Msg("failed to reindex entity")
					return
				}
				indexed.Add(1)
			})
			if submitErr != nil {
				wg.Done()
				failed.Add(1)
			}
		}

		if len(ids) < s.batchSize {
			break
		}
	}

	wg.Wait()
	report.Indexed, report.Failed = int(indexed.Load()), int(failed.Load())
	logger.Info().
		Str("entity_type", string(entityType)).
		Int("indexed", report.Indexed).
		Int("failed", report.Failed).
		Msg("reindex finished")
	return report, nil
}

func (s *ReindexService) indexOne(ctx context.Context, entityType entities.EntityType, id string) error {
	if _, err := s.indexer.IndexEntity(ctx, entityType, id); err != nil {
		return err
	}
	if entityType != entities.EntityTypeBusiness || s.geo == nil {
		return nil
	}
	b, err := s.businesses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.geo.Index(ctx, b)
}

func (s *ReindexService) lister(entityType entities.EntityType) (func(context.Context, string, int) ([]string, error), error) {
	switch entityType {
	case entities.EntityTypeBusiness:
		return s.businesses.ListIDs, nil
	case entities.EntityTypeSale:
		return s.sales.ListIDs, nil
	case entities.EntityTypePromo:
		return s.promos.ListIDs, nil
	}
	return nil, fmt.Errorf("unsupported entity type: %s", entityType)
}
