package repositories

import (
	"context"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

// EmbeddingRepository stores embedding documents
type EmbeddingRepository interface {
	// FindByNaturalKey returns a NOT_FOUND AppError when no document exists
	FindByNaturalKey(ctx context.Context, entityType entities.EntityType, entityID string) (*entities.EmbeddingDocument, error)

	Create(ctx context.Context, doc *entities.EmbeddingDocument) error

	Update(ctx context.Context, doc *entities.EmbeddingDocument) error

	// ListActive returns every active document with its vector
	ListActive(ctx context.Context) ([]*entities.EmbeddingDocument, error)

	Deactivate(ctx context.Context, id string) error
}
