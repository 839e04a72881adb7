package entities

import (
	"time"

	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// SearchItem is one result candidate from any of the three collections.
// The variants are BusinessItem, SaleItem and PromoItem.
type SearchItem interface {
	EntityType() EntityType
	Normalize() NormalizedItem
	searchItem()
}

// NormalizedItem is the common envelope every merged result is reduced to
type NormalizedItem struct {
	Type            EntityType  `json:"type"`
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Price           *float64    `json:"price"`
	Currency        string      `json:"currency,omitempty"`
	CategoryID      *string     `json:"categoryId"`
	SubcategoryID   *string     `json:"subcategoryId"`
	ServiceIDs      []string    `json:"serviceIds"`
	Rating          *float64    `json:"rating"`
	Location        *geo.Point  `json:"location"`
	City            string      `json:"city,omitempty"`
	Active          bool        `json:"active"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	DistanceKm      *float64    `json:"distanceKm,omitempty"`
	IsFavorite      bool        `json:"isFavorite"`
	CurrentlyActive *bool       `json:"isCurrentlyActive,omitempty"`
	Detail          interface{} `json:"detail,omitempty"`
}

// Timestamp is the recency key used for tie-breaks: updatedAt, else createdAt
func (n *NormalizedItem) Timestamp() time.Time {
	if !n.UpdatedAt.IsZero() {
		return n.UpdatedAt
	}
	return n.CreatedAt
}

// BusinessItem wraps a Business
type BusinessItem struct {
	Business *Business
}

func (BusinessItem) searchItem() {}

// EntityType implements SearchItem
func (BusinessItem) EntityType() EntityType { return EntityTypeBusiness }

// Normalize implements SearchItem
func (b BusinessItem) Normalize() NormalizedItem {
	biz := b.Business
	rating := biz.Rating
	return NormalizedItem{
		Type:       EntityTypeBusiness,
		ID:         biz.ID,
		Title:      biz.Name,
		CategoryID: optionalString(biz.CategoryID),
		ServiceIDs: nonNil(biz.ServiceIDs),
		Rating:     &rating,
		Location:   biz.Location,
		City:       biz.City,
		Active:     biz.IsActive,
		CreatedAt:  biz.CreatedAt,
		UpdatedAt:  biz.UpdatedAt,
		Detail:     biz,
	}
}

// SaleItem wraps a SaleAd
type SaleItem struct {
	Ad *SaleAd
}

func (SaleItem) searchItem() {}

// EntityType implements SearchItem
func (SaleItem) EntityType() EntityType { return EntityTypeSale }

// Normalize implements SearchItem
func (s SaleItem) Normalize() NormalizedItem {
	ad := s.Ad
	return NormalizedItem{
		Type:          EntityTypeSale,
		ID:            ad.ID,
		Title:         ad.Title,
		Price:         ad.Price,
		Currency:      ad.Currency,
		CategoryID:    optionalString(ad.CategoryID),
		SubcategoryID: optionalString(ad.SubcategoryID),
		ServiceIDs:    []string{},
		Location:      ad.Location,
		City:          ad.City,
		Active:        ad.IsActive,
		CreatedAt:     ad.CreatedAt,
		UpdatedAt:     ad.UpdatedAt,
		Detail:        ad,
	}
}

// PromoItem wraps a PromoAd together with the instant it was evaluated at
type PromoItem struct {
	Ad  *PromoAd
	Now time.Time
}

func (PromoItem) searchItem() {}

// EntityType implements SearchItem
func (PromoItem) EntityType() EntityType { return EntityTypePromo }

// Normalize implements SearchItem
func (p PromoItem) Normalize() NormalizedItem {
	ad := p.Ad
	current := ad.IsCurrentlyActive(p.Now)
	return NormalizedItem{
		Type:            EntityTypePromo,
		ID:              ad.ID,
		Title:           ad.Title,
		ServiceIDs:      []string{},
		Location:        ad.Location,
		City:            ad.City,
		Active:          ad.IsActive,
		CreatedAt:       ad.CreatedAt,
		UpdatedAt:       ad.UpdatedAt,
		CurrentlyActive: &current,
		Detail:          ad,
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
