package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localdiscovery/internal/adapters/providers/embedding"
	"github.com/zatekoja/localdiscovery/internal/application/services"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

func TestReindex_IndexesEveryEntityAcrossBatches(t *testing.T) {
	f := newFixture()
	for i := 0; i < 7; i++ {
		f.promos.Put(&entities.PromoAd{ID: fmt.Sprintf("p%02d", i), Title: fmt.Sprintf("Promo %d", i), IsActive: true})
	}
	indexer := newIndexService(f, embedding.NewHashingEmbedder(16))
	svc := services.NewReindexService(f.businesses, f.sales, f.promos, indexer, nil, 3, 2)

	report, err := svc.Reindex(context.Background(), entities.EntityTypePromo)
	require.NoError(t, err)

	assert.Equal(t, services.ReindexReport{EntityType: entities.EntityTypePromo, Indexed: 8, Failed: 0}, report)
	assert.Equal(t, 8, f.documents.Len())
	assert.Equal(t, 5, f.promos.Calls["ListIDs"], "four full batches and one empty page")
}

func TestReindex_CountsFailuresAndRefreshesGeoIndex(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "b2", Name: "Second", IsActive: true})

	embedder := new(MockEmbeddingProvider)
	embedder.On("Embed", mock.Anything, mock.MatchedBy(func(text string) bool { return text == "Second" })).Return(nil, errors.New("rate limited"))
	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)

	geoIndex := &recordingGeoIndex{}
	svc := services.NewReindexService(f.businesses, f.sales, f.promos, newIndexService(f, embedder), geoIndex, 1, 10)

	report, err := svc.Reindex(context.Background(), entities.EntityTypeBusiness)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"b1"}, geoIndex.indexed)
}

func TestReindex_UnknownType(t *testing.T) {
	f := newFixture()
	svc := services.NewReindexService(f.businesses, f.sales, f.promos, newIndexService(f, embedding.NewHashingEmbedder(4)), nil, 0, 0)

	_, err := svc.Reindex(context.Background(), entities.EntityType("event"))
	assert.Error(t, err)
}

func TestReindex_CancelledContext(t *testing.T) {
	f := newFixture()
	svc := services.NewReindexService(f.businesses, f.sales, f.promos, newIndexService(f, embedding.NewHashingEmbedder(4)), nil, 2, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Reindex(ctx, entities.EntityTypeSale)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.documents.Len())
}
