package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/localdiscovery/internal/adapters/loaders"
	"github.com/zatekoja/localdiscovery/internal/adapters/memory"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

type fixture struct {
	businesses *memory.ListingStore[*entities.Business, predicates.Business]
	sales      *memory.ListingStore[*entities.SaleAd, predicates.SaleAd]
	promos     *memory.ListingStore[*entities.PromoAd, predicates.PromoAd]
	refs       *memory.ReferenceStore
	documents  *memory.EmbeddingStore
}

func newFixture() *fixture {
	price := 1500.0
	lagos := geo.NewPoint(6.5244, 3.3792)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	return &fixture{
		businesses: memory.NewBusinessStore(&entities.Business{
			ID:          "b1",
			Name:        "Mama's Bakery",
			Description: "Fresh bread daily",
			City:        "Lagos",
			Address:     "12 Marina Road",
			CategoryID:  "c1",
			ServiceIDs:  []string{"s2", "s1"},
			Rating:      4.6,
			Location:    &lagos,
			IsActive:    true,
			CreatedAt:   created,
		}),
		sales: memory.NewSaleAdStore(&entities.SaleAd{
			ID:            "sa1",
			Title:         "Used bicycle",
			Description:   "Barely ridden",
			CategoryID:    "sc1",
			SubcategoryID: "ssc1",
			Price:         &price,
			Currency:      "NGN",
			City:          "Abuja",
			IsActive:      true,
			CreatedAt:     created,
		}),
		promos: memory.NewPromoAdStore(&entities.PromoAd{
			ID:          "p1",
			Title:       "Half price croissants",
			Description: "Mornings only",
			City:        "Lagos",
			Address:     "12 Marina Road",
			IsActive:    true,
			CreatedAt:   created,
		}),
		refs: memory.NewReferenceStore().
			Add(entities.ReferenceBusinessCategory, "c1", "Bakery").
			Add(entities.ReferenceService, "s1", "Delivery").
			Add(entities.ReferenceService, "s2", "Catering").
			Add(entities.ReferenceSaleCategory, "sc1", "Sports").
			Add(entities.ReferenceSaleSubcategory, "ssc1", "Bicycles"),
		documents: memory.NewEmbeddingStore(),
	}
}

func (f *fixture) loader() *loaders.ReferenceLoader {
	return loaders.NewReferenceLoader(f.refs)
}

// MockEmbeddingProvider is a testify mock of providers.EmbeddingProvider
type MockEmbeddingProvider struct {
	mock.Mock
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEmbeddingRepository is a testify mock of repositories.EmbeddingRepository
type MockEmbeddingRepository struct {
	mock.Mock
}

func (m *MockEmbeddingRepository) FindByNaturalKey(ctx context.Context, entityType entities.EntityType, entityID string) (*entities.EmbeddingDocument, error) {
	args := m.Called(ctx, entityType, entityID)
	if v := args.Get(0); v != nil {
		return v.(*entities.EmbeddingDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbeddingRepository) Create(ctx context.Context, doc *entities.EmbeddingDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockEmbeddingRepository) Update(ctx context.Context, doc *entities.EmbeddingDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockEmbeddingRepository) ListActive(ctx context.Context) ([]*entities.EmbeddingDocument, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*entities.EmbeddingDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbeddingRepository) Deactivate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// recordingGeoIndex records calls to the business geo index
type recordingGeoIndex struct {
	indexed []string
	deleted []string
}

func (r *recordingGeoIndex) Index(_ context.Context, b *entities.Business) error {
	r.indexed = append(r.indexed, b.ID)
	return nil
}

func (r *recordingGeoIndex) Delete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}
