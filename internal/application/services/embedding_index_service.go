package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/localdiscovery/internal/adapters/loaders"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

// PayloadSeparator joins the fields of an embedded payload
const PayloadSeparator = " | "

// EmbeddingIndexService keeps one embedding document per entity
type EmbeddingIndexService struct {
	businesses repositories.BusinessRepository
	sales      repositories.SaleAdRepository
	promos     repositories.PromoAdRepository
	refs       *loaders.ReferenceLoader
	documents  repositories.EmbeddingRepository
	embedder   providers.EmbeddingProvider
}

// NewEmbeddingIndexService creates a new embedding index service
func NewEmbeddingIndexService(
	businesses repositories.BusinessRepository,
	sales repositories.SaleAdRepository,
	promos repositories.PromoAdRepository,
	refs *loaders.ReferenceLoader,
	documents repositories.EmbeddingRepository,
	embedder providers.EmbeddingProvider,
) *EmbeddingIndexService {
	return &EmbeddingIndexService{
		businesses: businesses,
		sales:      sales,
		promos:     promos,
		refs:       refs,
		documents:  documents,
		embedder:   embedder,
	}
}

// IndexEntity embeds the entity and upserts its document. It returns the
// document id. Concurrent calls for the same entity are last-write-wins.
func (s *EmbeddingIndexService) IndexEntity(ctx context.Context, entityType entities.EntityType, entityID string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "embedding.index",
		attribute.String("entity.type", string(entityType)),
		attribute.String("entity.id", entityID),
	)
	defer span.End()

	p, err := s.payload(ctx, entityType, entityID)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}

	vector, err := s.embedder.Embed(ctx, p.content)
	if err != nil {
		observability.RecordError(span, err)
		return "", apperrors.NewExternalError("failed to embed entity", err)
	}

	doc := &entities.EmbeddingDocument{
		Title:   p.title,
		Content: p.content,
		Vector:  vector,
		Metadata: map[string]interface{}{
			entities.MetadataEntityType: string(entityType),
			entities.MetadataEntityID:   entityID,
		},
		IsActive: p.active,
	}

	id, err := s.upsert(ctx, doc)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("entity_type", string(entityType)).
		Str("entity_id", entityID).
		Str("document_id", id).
		Bool("active", p.active).
		Msg("indexed entity")
	return id, nil
}

// RemoveEntity deactivates the entity's document. Unindexed entities are a no-op.
func (s *EmbeddingIndexService) RemoveEntity(ctx context.Context, entityType entities.EntityType, entityID string) error {
	existing, err := s.documents.FindByNaturalKey(ctx, entityType, entityID)
	if apperrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return asAppError("failed to look up embedding document", err)
	}
	if err := s.documents.Deactivate(ctx, existing.ID); err != nil && !apperrors.IsNotFound(err) {
		return asAppError("failed to deactivate embedding document", err)
	}
	return nil
}

func (s *EmbeddingIndexService) upsert(ctx context.Context, doc *entities.EmbeddingDocument) (string, error) {
	entityType, entityID, _ := doc.NaturalKey()

	existing, err := s.documents.FindByNaturalKey(ctx, entityType, entityID)
	switch {
	case err == nil:
		doc.ID = existing.ID
		if err := s.documents.Update(ctx, doc); err != nil {
			return "", asAppError("failed to update embedding document", err)
		}
		return doc.ID, nil
	case !apperrors.IsNotFound(err):
		return "", asAppError("failed to look up embedding document", err)
	}

	doc.ID = uuid.NewString()
	err = s.documents.Create(ctx, doc)
	if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
		// A concurrent indexer created the document first
		if existing, findErr := s.documents.FindByNaturalKey(ctx, entityType, entityID); findErr == nil {
			doc.ID = existing.ID
			err = s.documents.Update(ctx, doc)
		}
	}
	if err != nil {
		return "", asAppError("failed to create embedding document", err)
	}
	return doc.ID, nil
}

// indexPayload is the embedded text of one entity. Documents of inactive
// entities are stored inactive so retrieval never sees them.
type indexPayload struct {
	title   string
	content string
	active  bool
}

// payload loads the entity and builds its deterministic embedding text
func (s *EmbeddingIndexService) payload(ctx context.Context, entityType entities.EntityType, entityID string) (indexPayload, error) {
	switch entityType {
	case entities.EntityTypeBusiness:
		b, err := s.businesses.GetByID(ctx, entityID)
		if err != nil {
			return indexPayload{}, err
		}
		category, err := s.refs.Name(ctx, entities.ReferenceBusinessCategory, b.CategoryID)
		if err != nil {
			return indexPayload{}, asAppError("failed to resolve category", err)
		}
		services, err := s.refs.Names(ctx, entities.ReferenceService, b.ServiceIDs)
		if err != nil {
			return indexPayload{}, asAppError("failed to resolve services", err)
		}
		return indexPayload{
			title:   b.Name,
			content: joinPayload(b.Name, category, strings.Join(services, ", "), b.Description, b.City, b.Address),
			active:  b.IsActive,
		}, nil

	case entities.EntityTypeSale:
		ad, err := s.sales.GetByID(ctx, entityID)
		if err != nil {
			return indexPayload{}, err
		}
		category, err := s.refs.Name(ctx, entities.ReferenceSaleCategory, ad.CategoryID)
		if err != nil {
			return indexPayload{}, asAppError("failed to resolve category", err)
		}
		subcategory, err := s.refs.Name(ctx, entities.ReferenceSaleSubcategory, ad.SubcategoryID)
		if err != nil {
			return indexPayload{}, asAppError("failed to resolve subcategory", err)
		}
		return indexPayload{
			title:   ad.Title,
			content: joinPayload(ad.Title, category, subcategory, ad.Description, ad.City, formatPrice(ad.Price, ad.Currency)),
			active:  ad.IsActive,
		}, nil

	case entities.EntityTypePromo:
		ad, err := s.promos.GetByID(ctx, entityID)
		if err != nil {
			return indexPayload{}, err
		}
		// The stored flag only; the validity window is evaluated at read time
		return indexPayload{
			title:   ad.Title,
			content: joinPayload(ad.Title, ad.Description, ad.City, ad.Address),
			active:  ad.IsActive,
		}, nil
	}

	return indexPayload{}, apperrors.NewValidationError("unsupported entity type: " + string(entityType))
}

// joinPayload joins the non-blank fields in order
func joinPayload(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, PayloadSeparator)
}

func formatPrice(price *float64, currency string) string {
	if price == nil {
		return ""
	}
	return strings.TrimSpace(strconv.FormatFloat(*price, 'f', -1, 64) + " " + currency)
}

// asAppError keeps typed errors and wraps anything else as internal
func asAppError(message string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewInternalError(message, err)
}
