package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/query/builders"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

func TestMergeEngine_DistanceSortWithRadius(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "b10", Name: "Ten", Location: pointEast(10), IsActive: true})
	f.businesses.Put(&entities.Business{ID: "b1", Name: "One", Location: pointEast(1), IsActive: true})
	f.businesses.Put(&entities.Business{ID: "b5", Name: "Five", Location: pointEast(5), IsActive: true})

	origin := geo.NewPoint(0, 0)
	page, err := f.engine().Search(context.Background(), SearchParams{
		Sort:          SortDistance,
		Origin:        &origin,
		MaxDistanceKm: f64(6),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b5"}, itemIDs(page.Items))
	require.NotNil(t, page.Items[0].DistanceKm)
	assert.InDelta(t, 1, *page.Items[0].DistanceKm, 0.01)
	assert.InDelta(t, 5, *page.Items[1].DistanceKm, 0.01)
	assert.Equal(t, 2, page.Pagination.Total)
}

func TestMergeEngine_DistanceTieBreaks(t *testing.T) {
	f := newFixture()
	older := fixedNow.Add(-48 * time.Hour)
	newer := fixedNow.Add(-time.Hour)
	f.businesses.Put(&entities.Business{ID: "old", Name: "Alpha", Location: pointEast(2), IsActive: true, CreatedAt: older})
	f.sales.Put(&entities.SaleAd{ID: "new", Title: "Zulu", Location: pointEast(2), IsActive: true, CreatedAt: newer})
	f.sales.Put(&entities.SaleAd{ID: "same-b", Title: "beta", Location: pointEast(2), IsActive: true, CreatedAt: older})
	f.promos.Put(&entities.PromoAd{ID: "nowhere", Title: "Promo", IsActive: true, CreatedAt: newer})

	origin := geo.NewPoint(0, 0)
	page, err := f.engine().Search(context.Background(), SearchParams{Sort: SortDistance, Origin: &origin})

	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old", "same-b", "nowhere"}, itemIDs(page.Items))
	assert.Nil(t, page.Items[3].DistanceKm)
}

func TestMergeEngine_PriceFilterIsExclusive(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "biz", Name: "Shop", IsActive: true})
	f.promos.Put(&entities.PromoAd{ID: "promo", Title: "Deal", IsActive: true})
	for i, price := range []float64{50, 150, 300} {
		f.sales.Put(&entities.SaleAd{ID: fmt.Sprintf("s%d", i), Title: "Item", Price: f64(price), IsActive: true})
	}
	f.sales.Put(&entities.SaleAd{ID: "unpriced", Title: "Offer", IsActive: true})

	page, err := f.engine().Search(context.Background(), SearchParams{
		Sale: builders.SaleFilter{PriceMin: f64(100), PriceMax: f64(250), IncludeNoPrice: true},
	})

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, entities.EntityTypeSale, page.Items[0].Type)
	assert.Equal(t, 150.0, *page.Items[0].Price)
	assert.Zero(t, f.businesses.Calls["Find"])
	assert.Zero(t, f.promos.Calls["Find"])
}

func TestMergeEngine_PriceMinOnlyReturnsSaleAdsAboveMin(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "biz", IsActive: true})
	f.promos.Put(&entities.PromoAd{ID: "promo", IsActive: true})
	f.sales.Put(&entities.SaleAd{ID: "cheap", Price: f64(20), IsActive: true})
	f.sales.Put(&entities.SaleAd{ID: "dear", Price: f64(120), IsActive: true})

	page, err := f.engine().Search(context.Background(), SearchParams{Sale: builders.SaleFilter{PriceMin: f64(100)}})

	require.NoError(t, err)
	for _, it := range page.Items {
		assert.Equal(t, entities.EntityTypeSale, it.Type)
		assert.GreaterOrEqual(t, *it.Price, 100.0)
	}
	assert.Equal(t, []string{"dear"}, itemIDs(page.Items))
}

func TestMergeEngine_OpenNowKeepsOpenBusinessesOnly(t *testing.T) {
	f := newFixture()
	nineToFive := entities.OpeningHours{{Day: 2, Ranges: []entities.TimeRange{{Open: "09:00", Close: "17:00"}}}}
	evenings := entities.OpeningHours{{Day: 2, Ranges: []entities.TimeRange{{Open: "18:00", Close: "23:00"}}}}
	f.businesses.Put(&entities.Business{ID: "open", OpeningHours: nineToFive, IsActive: true})
	f.businesses.Put(&entities.Business{ID: "closed", OpeningHours: evenings, IsActive: true})
	f.businesses.Put(&entities.Business{ID: "always", IsActive: true})
	f.sales.Put(&entities.SaleAd{ID: "sale", IsActive: true})
	f.promos.Put(&entities.PromoAd{ID: "promo", IsActive: true})

	page, err := f.engine().Search(context.Background(), SearchParams{OpenNow: true, Sort: SortName})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"open", "always"}, itemIDs(page.Items))
	assert.Zero(t, f.sales.Calls["Find"])
}

func TestMergeEngine_OpenNowWithSaleFilterIsEmpty(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "biz", IsActive: true})
	f.sales.Put(&entities.SaleAd{ID: "sale", Price: f64(10), IsActive: true})

	page, err := f.engine().Search(context.Background(), SearchParams{OpenNow: true, Sale: builders.SaleFilter{PriceMax: f64(100)}})

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Pagination.Total)
}

func TestMergeEngine_BusinessOnlyFilter(t *testing.T) {
	f := newFixture()
	f.refs.Add(entities.ReferenceBusinessCategory, "cat-food", "Food")
	f.businesses.Put(&entities.Business{ID: "restaurant", CategoryID: "cat-food", IsActive: true})
	f.businesses.Put(&entities.Business{ID: "garage", CategoryID: "cat-auto", IsActive: true})
	f.sales.Put(&entities.SaleAd{ID: "sale", IsActive: true})

	page, err := f.engine().Search(context.Background(), SearchParams{Business: builders.BusinessFilter{CategoryName: "food"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"restaurant"}, itemIDs(page.Items))
}

func TestMergeEngine_UnresolvedCategorySkipsStore(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "biz", IsActive: true})

	page, err := f.engine().Search(context.Background(), SearchParams{Business: builders.BusinessFilter{CategoryName: "spaceports"}})

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, f.businesses.Calls["Find"])
}

func TestMergeEngine_ExpiredPromosAreDropped(t *testing.T) {
	f := newFixture()
	f.promos.Put(&entities.PromoAd{ID: "live", IsActive: true, ValidFrom: fixedNow.Add(-time.Hour), ValidTo: fixedNow.Add(time.Hour)})
	f.promos.Put(&entities.PromoAd{ID: "gone", IsActive: true, ValidTo: fixedNow.Add(-time.Hour)})

	page, err := f.engine().Search(context.Background(), SearchParams{})

	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, itemIDs(page.Items))
	assert.True(t, *page.Items[0].CurrentlyActive)
}

func TestMergeEngine_SortModesWithoutOrigin(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "b-low", Name: "Bravo", Rating: 2, IsActive: true, CreatedAt: fixedNow.Add(-3 * time.Hour)})
	f.businesses.Put(&entities.Business{ID: "b-high", Name: "alpha", Rating: 5, IsActive: true, CreatedAt: fixedNow.Add(-2 * time.Hour)})
	f.sales.Put(&entities.SaleAd{ID: "s", Title: "Charlie", IsActive: true, CreatedAt: fixedNow.Add(-time.Hour)})

	tests := []struct {
		sort SortMode
		want []string
	}{
		{SortNewest, []string{"s", "b-high", "b-low"}},
		{SortName, []string{"b-high", "b-low", "s"}},
		{SortRating, []string{"b-high", "b-low", "s"}},
		{SortDistance, []string{"s", "b-high", "b-low"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			page, err := f.engine().Search(context.Background(), SearchParams{Sort: tt.sort})
			require.NoError(t, err)
			assert.Equal(t, tt.want, itemIDs(page.Items))
		})
	}
}

func TestMergeEngine_TotalIsBoundedByPrefetchWindow(t *testing.T) {
	f := newFixture()
	for i := 0; i < 50; i++ {
		f.businesses.Put(&entities.Business{ID: fmt.Sprintf("b%02d", i), IsActive: true, CreatedAt: fixedNow.Add(-time.Duration(i) * time.Minute)})
	}

	page, err := f.engine().Search(context.Background(), SearchParams{Limit: 5, Business: builders.BusinessFilter{MinRating: f64(0)}})

	require.NoError(t, err)
	// limit 5 x multiplier 3 = 15 candidates prefetched, out of 50 matching
	assert.Equal(t, 15, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasMore)
}

func TestMergeEngine_MarksFavorites(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "fav", IsActive: true})
	f.businesses.Put(&entities.Business{ID: "other", IsActive: true})

	viewer := &entities.User{ID: "u1", Favorites: []entities.Favorite{{EntityType: entities.EntityTypeBusiness, EntityID: "fav"}}}
	page, err := f.engine().Search(context.Background(), SearchParams{Viewer: viewer, Sort: SortName})

	require.NoError(t, err)
	for _, it := range page.Items {
		assert.Equal(t, it.ID == "fav", it.IsFavorite)
	}
}

func TestMergeEngine_ValidationBeforeStoreAccess(t *testing.T) {
	origin := geo.NewPoint(0, 0)
	tests := []struct {
		name   string
		params SearchParams
	}{
		{"limit too large", SearchParams{Limit: 101}},
		{"negative page", SearchParams{Page: -1}},
		{"radius without origin", SearchParams{MaxDistanceKm: f64(5)}},
		{"zero radius", SearchParams{Origin: &origin, MaxDistanceKm: f64(0)}},
		{"inverted price range", SearchParams{Sale: builders.SaleFilter{PriceMin: f64(10), PriceMax: f64(5)}}},
		{"price sort on merged surface", SearchParams{Sort: SortPriceAsc}},
		{"bad latitude", SearchParams{Origin: &geo.Point{Lat: 91}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.engine().Search(context.Background(), tt.params)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)
			assert.Empty(t, f.businesses.Calls)
		})
	}
}

type MockSaleAdRepository struct {
	mock.Mock
	repositories.SaleAdRepository
}

func (m *MockSaleAdRepository) Find(ctx context.Context, pred predicates.SaleAd, opts repositories.FindOptions) ([]*entities.SaleAd, error) {
	args := m.Called(ctx, pred, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SaleAd), args.Error(1)
}

func TestMergeEngine_StoreFailureIsInternal(t *testing.T) {
	f := newFixture()
	sales := new(MockSaleAdRepository)
	sales.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	e := NewMergeEngine(f.businesses, sales, f.promos, builders.NewBuilder(f.refs), testSearchConfig(), time.UTC, nil)
	_, err := e.Search(context.Background(), SearchParams{})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	sales.AssertExpectations(t)
}

func TestMergeEngine_PrefetchSize(t *testing.T) {
	e := newFixture().engine()

	assert.Equal(t, 72, e.prefetchSize(&SearchParams{Limit: 24}))
	assert.Equal(t, 200, e.prefetchSize(&SearchParams{Limit: 24, OpenNow: true}))
	assert.Equal(t, 100, e.prefetchSize(&SearchParams{Limit: 10, OpenNow: true}))
}
