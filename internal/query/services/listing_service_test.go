package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/query/builders"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

func TestListBusinesses_ExactCountWithoutOrigin(t *testing.T) {
	f := newFixture()
	for i := 0; i < 45; i++ {
		f.businesses.Put(&entities.Business{ID: fmt.Sprintf("b%02d", i), IsActive: true, CreatedAt: fixedNow.Add(-time.Duration(i) * time.Minute)})
	}

	page, err := f.listings().ListBusinesses(context.Background(), SearchParams{Page: 3})

	require.NoError(t, err)
	assert.Equal(t, []string{"b40", "b41", "b42", "b43", "b44"}, itemIDs(page.Items))
	assert.Equal(t, entities.Pagination{Total: 45, Page: 3, Limit: 20, TotalPages: 3, HasMore: false}, page.Pagination)
	assert.Equal(t, 1, f.businesses.Calls["Count"])
}

func TestListBusinesses_OriginDefaultsToNearestFirst(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "far", Location: pointEast(8), IsActive: true})
	f.businesses.Put(&entities.Business{ID: "near", Location: pointEast(2), IsActive: true})

	origin := geo.NewPoint(0, 0)
	page, err := f.listings().ListBusinesses(context.Background(), SearchParams{Origin: &origin})

	require.NoError(t, err)
	assert.Equal(t, []string{"near", "far"}, itemIDs(page.Items))
	assert.InDelta(t, 2, *page.Items[0].DistanceKm, 0.01)
	assert.Equal(t, 1, f.businesses.Calls["Near"])
	assert.Zero(t, f.businesses.Calls["Count"])
}

func TestListBusinesses_OpenNowUsesWindow(t *testing.T) {
	f := newFixture()
	closed := entities.OpeningHours{{Day: 2, Closed: true}}
	f.businesses.Put(&entities.Business{ID: "open", IsActive: true})
	f.businesses.Put(&entities.Business{ID: "shut", OpeningHours: closed, IsActive: true})

	page, err := f.listings().ListBusinesses(context.Background(), SearchParams{OpenNow: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"open"}, itemIDs(page.Items))
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Zero(t, f.businesses.Calls["Count"])
}

func TestListBusinesses_IncludeInactiveRequiresAdmin(t *testing.T) {
	f := newFixture()
	f.businesses.Put(&entities.Business{ID: "hidden", IsActive: false})

	_, err := f.listings().ListBusinesses(context.Background(), SearchParams{Business: builders.BusinessFilter{IncludeInactive: true}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	admin := &entities.User{ID: "a", Role: entities.RoleAdmin}
	page, err := f.listings().ListBusinesses(context.Background(), SearchParams{Viewer: admin, Business: builders.BusinessFilter{IncludeInactive: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"hidden"}, itemIDs(page.Items))
}

func TestListSaleAds_PriceSortExcludesUnpriced(t *testing.T) {
	f := newFixture()
	f.sales.Put(&entities.SaleAd{ID: "mid", Price: f64(20), IsActive: true})
	f.sales.Put(&entities.SaleAd{ID: "none", IsActive: true})
	f.sales.Put(&entities.SaleAd{ID: "low", Price: f64(5), IsActive: true})

	page, err := f.listings().ListSaleAds(context.Background(), SearchParams{Sort: SortPriceAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"low", "mid"}, itemIDs(page.Items))

	page, err = f.listings().ListSaleAds(context.Background(), SearchParams{Sort: SortPriceDesc, Sale: builders.SaleFilter{IncludeNoPrice: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "low", "none"}, itemIDs(page.Items))
}

func TestListSaleAds_PriceRange(t *testing.T) {
	f := newFixture()
	for _, price := range []float64{50, 150, 300} {
		f.sales.Put(&entities.SaleAd{ID: fmt.Sprintf("s%.0f", price), Price: f64(price), IsActive: true})
	}

	page, err := f.listings().ListSaleAds(context.Background(), SearchParams{Sale: builders.SaleFilter{PriceMin: f64(100), PriceMax: f64(250)}})

	require.NoError(t, err)
	assert.Equal(t, []string{"s150"}, itemIDs(page.Items))
}

func TestListPromoAds_StatusAndAnnotation(t *testing.T) {
	f := newFixture()
	f.promos.Put(&entities.PromoAd{ID: "live", City: "Lagos", IsActive: true, ValidFrom: fixedNow.Add(-time.Hour), ValidTo: fixedNow.Add(time.Hour)})
	f.promos.Put(&entities.PromoAd{ID: "soon", City: "Lagos", IsActive: true, ValidFrom: fixedNow.Add(time.Hour)})

	page, err := f.listings().ListPromoAds(context.Background(), SearchParams{Promo: builders.PromoFilter{Status: predicates.PromoStatusUpcoming}})
	require.NoError(t, err)
	require.Equal(t, []string{"soon"}, itemIDs(page.Items))
	assert.False(t, *page.Items[0].CurrentlyActive)

	page, err = f.listings().ListPromoAds(context.Background(), SearchParams{Promo: builders.PromoFilter{City: "lag"}, Sort: SortName})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"live", "soon"}, itemIDs(page.Items))
}

func TestListPromoAds_RejectsPriceSort(t *testing.T) {
	_, err := newFixture().listings().ListPromoAds(context.Background(), SearchParams{Sort: SortPriceAsc})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
