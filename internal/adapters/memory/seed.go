package memory

import (
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// Stores groups the in-memory repositories so they can be seeded together
type Stores struct {
	Businesses *ListingStore[*entities.Business, predicates.Business]
	Sales      *ListingStore[*entities.SaleAd, predicates.SaleAd]
	Promos     *ListingStore[*entities.PromoAd, predicates.PromoAd]
	References *ReferenceStore
}

// NewStores creates empty stores
func NewStores() *Stores {
	return &Stores{
		Businesses: NewBusinessStore(),
		Sales:      NewSaleAdStore(),
		Promos:     NewPromoAdStore(),
		References: NewReferenceStore(),
	}
}

func weekdays(open, close string) entities.OpeningHours {
	hours := make(entities.OpeningHours, 0, 5)
	for day := 1; day <= 5; day++ {
		hours = append(hours, entities.DayHours{Day: day, Ranges: []entities.TimeRange{{Open: open, Close: close}}})
	}
	return hours
}

func point(lat, lng float64) *geo.Point {
	p := geo.NewPoint(lat, lng)
	return &p
}

func price(v float64) *float64 {
	return &v
}

// SeedDemo loads a small Lagos and Abuja catalog for local runs. Promo
// validity windows are placed relative to now.
func (s *Stores) SeedDemo(now time.Time) {
	s.References.
		Add(entities.ReferenceBusinessCategory, "c1", "Bakery").
		Add(entities.ReferenceBusinessCategory, "c2", "Pharmacy").
		Add(entities.ReferenceBusinessCategory, "c3", "Auto Repair").
		Add(entities.ReferenceService, "s1", "Delivery").
		Add(entities.ReferenceService, "s2", "Catering").
		Add(entities.ReferenceService, "s3", "Prescription Refill").
		Add(entities.ReferenceService, "s4", "Tyre Change").
		Add(entities.ReferenceSaleCategory, "sc1", "Sports").
		Add(entities.ReferenceSaleCategory, "sc2", "Electronics").
		Add(entities.ReferenceSaleSubcategory, "ssc1", "Bicycles").
		Add(entities.ReferenceSaleSubcategory, "ssc2", "Phones")

	created := now.Add(-30 * 24 * time.Hour)

	for _, b := range []*entities.Business{
		{
			ID: "b1", Name: "Mama's Bakery", Description: "Fresh bread daily, birthday cakes to order",
			City: "Lagos", Address: "12 Marina Road", CategoryID: "c1", ServiceIDs: []string{"s1", "s2"},
			Rating: 4.6, Location: point(6.4531, 3.3958), OpeningHours: weekdays("07:00", "19:00"),
			IsActive: true, CreatedAt: created,
		},
		{
			ID: "b2", Name: "HealthPlus Pharmacy", Description: "Prescriptions and over the counter medicine",
			City: "Lagos", Address: "5 Allen Avenue, Ikeja", CategoryID: "c2", ServiceIDs: []string{"s1", "s3"},
			Rating: 4.2, Location: point(6.6018, 3.3515), IsActive: true, CreatedAt: created.Add(time.Hour),
		},
		{
			ID: "b3", Name: "Garki Auto Works", Description: "Engine diagnostics and tyre change",
			City: "Abuja", Address: "Area 8, Garki", CategoryID: "c3", ServiceIDs: []string{"s4"},
			Rating: 3.9, Location: point(9.0433, 7.4833), OpeningHours: weekdays("08:00", "17:00"),
			IsActive: true, CreatedAt: created.Add(2 * time.Hour),
		},
		{
			ID: "b4", Name: "Closed Corner Bakery", Description: "No longer trading",
			City: "Lagos", CategoryID: "c1", Rating: 2.1, Location: point(6.5244, 3.3792),
			IsActive: false, CreatedAt: created,
		},
	} {
		s.Businesses.Put(b)
	}

	for _, a := range []*entities.SaleAd{
		{
			ID: "sa1", Title: "Used bicycle", Description: "Second hand road bike, barely ridden",
			CategoryID: "sc1", SubcategoryID: "ssc1", Price: price(45000), Currency: "NGN",
			City: "Abuja", Location: point(9.0765, 7.3986), IsActive: true, CreatedAt: created.Add(3 * time.Hour),
		},
		{
			ID: "sa2", Title: "Android phone", Description: "Unlocked, 128GB, with charger",
			CategoryID: "sc2", SubcategoryID: "ssc2", Price: price(120000), Currency: "NGN",
			City: "Lagos", Location: point(6.5244, 3.3792), IsActive: true, CreatedAt: created.Add(4 * time.Hour),
		},
		{
			ID: "sa3", Title: "Football boots", Description: "Size 42, price negotiable",
			CategoryID: "sc1", City: "Lagos", IsActive: true, CreatedAt: created.Add(5 * time.Hour),
		},
	} {
		s.Sales.Put(a)
	}

	for _, p := range []*entities.PromoAd{
		{
			ID: "p1", BusinessID: "b1", Title: "Half price croissants", Description: "Mornings only, while stocks last",
			City: "Lagos", Address: "12 Marina Road", Location: point(6.4531, 3.3958),
			ValidFrom: now.Add(-24 * time.Hour), ValidTo: now.Add(7 * 24 * time.Hour),
			IsActive: true, CreatedAt: created.Add(6 * time.Hour),
		},
		{
			ID: "p2", BusinessID: "b2", Title: "Free blood pressure check", Description: "Every Saturday next month",
			City: "Lagos", Location: point(6.6018, 3.3515),
			ValidFrom: now.Add(14 * 24 * time.Hour), ValidTo: now.Add(45 * 24 * time.Hour),
			IsActive: true, CreatedAt: created.Add(7 * time.Hour),
		},
		{
			ID: "p3", BusinessID: "b3", Title: "Tyre sale", Description: "Ended last week",
			City: "Abuja", ValidFrom: now.Add(-30 * 24 * time.Hour), ValidTo: now.Add(-7 * 24 * time.Hour),
			IsActive: true, CreatedAt: created.Add(8 * time.Hour),
		},
	} {
		s.Promos.Put(p)
	}
}
