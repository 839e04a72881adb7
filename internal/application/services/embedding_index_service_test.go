package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localdiscovery/internal/adapters/providers/embedding"
	"github.com/zatekoja/localdiscovery/internal/application/services"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

func newIndexService(f *fixture, embedder providers.EmbeddingProvider) *services.EmbeddingIndexService {
	return services.NewEmbeddingIndexService(f.businesses, f.sales, f.promos, f.loader(), f.documents, embedder)
}

func TestIndexEntity_Payloads(t *testing.T) {
	tests := []struct {
		name       string
		entityType entities.EntityType
		id         string
		title      string
		content    string
	}{
		{
			name:       "business resolves category and services in order",
			entityType: entities.EntityTypeBusiness,
			id:         "b1",
			title:      "Mama's Bakery",
			content:    "Mama's Bakery | Bakery | Catering, Delivery | Fresh bread daily | Lagos | 12 Marina Road",
		},
		{
			name:       "sale ad includes price and currency",
			entityType: entities.EntityTypeSale,
			id:         "sa1",
			title:      "Used bicycle",
			content:    "Used bicycle | Sports | Bicycles | Barely ridden | Abuja | 1500 NGN",
		},
		{
			name:       "promo ad",
			entityType: entities.EntityTypePromo,
			id:         "p1",
			title:      "Half price croissants",
			content:    "Half price croissants | Mornings only | Lagos | 12 Marina Road",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			embedder := new(MockEmbeddingProvider)
			embedder.On("Embed", mock.Anything, tt.content).Return([]float32{1, 0}, nil).Once()

			id, err := newIndexService(f, embedder).IndexEntity(context.Background(), tt.entityType, tt.id)
			require.NoError(t, err)
			embedder.AssertExpectations(t)

			doc, err := f.documents.FindByNaturalKey(context.Background(), tt.entityType, tt.id)
			require.NoError(t, err)
			assert.Equal(t, id, doc.ID)
			assert.Equal(t, tt.title, doc.Title)
			assert.Equal(t, tt.content, doc.Content)
			assert.Equal(t, []float32{1, 0}, doc.Vector)
			assert.True(t, doc.IsActive)
			assert.Equal(t, string(tt.entityType), doc.Metadata[entities.MetadataEntityType])
			assert.Equal(t, tt.id, doc.Metadata[entities.MetadataEntityID])
		})
	}
}

func TestIndexEntity_UpsertsByNaturalKey(t *testing.T) {
	f := newFixture()
	svc := newIndexService(f, embedding.NewHashingEmbedder(32))
	ctx := context.Background()

	first, err := svc.IndexEntity(ctx, entities.EntityTypeBusiness, "b1")
	require.NoError(t, err)

	b, _ := f.businesses.GetByID(ctx, "b1")
	renamed := *b
	renamed.Name = "Mama's Patisserie"
	f.businesses.Put(&renamed)

	second, err := svc.IndexEntity(ctx, entities.EntityTypeBusiness, "b1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.documents.Len())
	doc, _ := f.documents.FindByNaturalKey(ctx, entities.EntityTypeBusiness, "b1")
	assert.Equal(t, "Mama's Patisserie", doc.Title)
}

func TestIndexEntity_EmbedFailureIsExternal(t *testing.T) {
	f := newFixture()
	embedder := new(MockEmbeddingProvider)
	embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, providers.ErrEmbeddingFailed)

	_, err := newIndexService(f, embedder).IndexEntity(context.Background(), entities.EntityTypePromo, "p1")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.ErrorIs(t, err, providers.ErrEmbeddingFailed)
	assert.Zero(t, f.documents.Len())
}

func TestIndexEntity_MissingEntity(t *testing.T) {
	f := newFixture()
	embedder := new(MockEmbeddingProvider)

	_, err := newIndexService(f, embedder).IndexEntity(context.Background(), entities.EntityTypeSale, "nope")

	assert.True(t, apperrors.IsNotFound(err))
	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestIndexEntity_UnknownType(t *testing.T) {
	f := newFixture()
	_, err := newIndexService(f, embedding.NewHashingEmbedder(8)).IndexEntity(context.Background(), entities.EntityType("event"), "x")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestIndexEntity_ConcurrentCreateFallsBackToUpdate(t *testing.T) {
	f := newFixture()
	docs := new(MockEmbeddingRepository)
	existing := &entities.EmbeddingDocument{ID: "doc-1"}

	docs.On("FindByNaturalKey", mock.Anything, entities.EntityTypePromo, "p1").
		Return(nil, apperrors.NewNotFoundError("embedding document not found")).Once()
	docs.On("Create", mock.Anything, mock.Anything).Return(apperrors.NewConflictError("exists")).Once()
	docs.On("FindByNaturalKey", mock.Anything, entities.EntityTypePromo, "p1").Return(existing, nil).Once()
	docs.On("Update", mock.Anything, mock.MatchedBy(func(d *entities.EmbeddingDocument) bool { return d.ID == "doc-1" })).Return(nil).Once()

	svc := services.NewEmbeddingIndexService(f.businesses, f.sales, f.promos, f.loader(), docs, embedding.NewHashingEmbedder(8))
	id, err := svc.IndexEntity(context.Background(), entities.EntityTypePromo, "p1")

	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)
	docs.AssertExpectations(t)
}

func TestRemoveEntity(t *testing.T) {
	f := newFixture()
	svc := newIndexService(f, embedding.NewHashingEmbedder(8))
	ctx := context.Background()

	_, err := svc.IndexEntity(ctx, entities.EntityTypeSale, "sa1")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveEntity(ctx, entities.EntityTypeSale, "sa1"))
	active, _ := f.documents.ListActive(ctx)
	assert.Empty(t, active)

	assert.NoError(t, svc.RemoveEntity(ctx, entities.EntityTypeSale, "never-indexed"))
}

func TestIndexEntity_InactiveEntityStaysOutOfRetrieval(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b, err := f.businesses.GetByID(ctx, "b1")
	require.NoError(t, err)
	closed := *b
	closed.IsActive = false
	f.businesses.Put(&closed)

	svc := newIndexService(f, embedding.NewHashingEmbedder(16))
	_, err = svc.IndexEntity(ctx, entities.EntityTypeBusiness, "b1")
	require.NoError(t, err)

	doc, err := f.documents.FindByNaturalKey(ctx, entities.EntityTypeBusiness, "b1")
	require.NoError(t, err)
	assert.False(t, doc.IsActive)
	active, _ := f.documents.ListActive(ctx)
	assert.Empty(t, active)

	results, err := services.NewSemanticSearchService(f.documents, embedding.NewHashingEmbedder(16)).
		Search(ctx, services.SemanticQuery{Query: "Mama's Bakery", MinScore: ptr(0.0)})
	require.NoError(t, err)
	assert.Empty(t, results)

	reopened := closed
	reopened.IsActive = true
	f.businesses.Put(&reopened)
	_, err = svc.IndexEntity(ctx, entities.EntityTypeBusiness, "b1")
	require.NoError(t, err)
	active, _ = f.documents.ListActive(ctx)
	assert.Len(t, active, 1, "reactivated entity is indexed again")
}
