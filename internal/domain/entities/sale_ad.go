package entities

import (
	"time"

	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// SaleAd represents a classified sale listing. Price is nil for "make an offer" ads.
type SaleAd struct {
	ID            string     `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	CategoryID    string     `json:"categoryId,omitempty" db:"category_id"`
	SubcategoryID string     `json:"subcategoryId,omitempty" db:"subcategory_id"`
	Price         *float64   `json:"price" db:"price"`
	Currency      string     `json:"currency,omitempty" db:"currency"`
	City          string     `json:"city,omitempty" db:"city"`
	Location      *geo.Point `json:"location,omitempty" db:"-"`
	OwnerID       string     `json:"ownerId,omitempty" db:"owner_id"`
	IsActive      bool       `json:"active" db:"is_active"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// HasPrice reports whether the ad carries a numeric price
func (s *SaleAd) HasPrice() bool {
	return s.Price != nil
}
