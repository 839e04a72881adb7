package services

import (
	"math"
	"time"

	"github.com/zatekoja/localdiscovery/internal/adapters/memory"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/query/builders"
	"github.com/zatekoja/localdiscovery/pkg/config"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// fixedNow is a Tuesday
var fixedNow = time.Date(2026, 10, 13, 10, 0, 0, 0, time.UTC)

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		Timezone:          "UTC",
		DefaultLimit:      24,
		ListingLimit:      20,
		MaxLimit:          100,
		PrefetchCap:       200,
		OpenNowMultiplier: 10,
		DefaultMultiplier: 3,
		ListingWindowCap:  500,
	}
}

type fixture struct {
	businesses *memory.ListingStore[*entities.Business, predicates.Business]
	sales      *memory.ListingStore[*entities.SaleAd, predicates.SaleAd]
	promos     *memory.ListingStore[*entities.PromoAd, predicates.PromoAd]
	refs       *memory.ReferenceStore
}

func newFixture() *fixture {
	return &fixture{
		businesses: memory.NewBusinessStore(),
		sales:      memory.NewSaleAdStore(),
		promos:     memory.NewPromoAdStore(),
		refs:       memory.NewReferenceStore(),
	}
}

func (f *fixture) engine() *MergeEngine {
	e := NewMergeEngine(f.businesses, f.sales, f.promos, builders.NewBuilder(f.refs), testSearchConfig(), time.UTC, nil)
	e.now = func() time.Time { return fixedNow }
	return e
}

func (f *fixture) listings() *ListingService {
	s := NewListingService(f.businesses, f.sales, f.promos, builders.NewBuilder(f.refs), testSearchConfig(), time.UTC)
	s.now = func() time.Time { return fixedNow }
	return s
}

// pointEast returns a point km kilometers east of the origin on the equator
func pointEast(km float64) *geo.Point {
	p := geo.NewPoint(0, km/(math.Pi*geo.EarthRadiusKm/180))
	return &p
}

func f64(v float64) *float64 { return &v }

func itemIDs(items []entities.NormalizedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
