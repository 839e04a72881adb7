package entities

import (
	"time"

	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// PromoAd represents a time-boxed promotion, usually run by a business.
// A zero ValidFrom or ValidTo leaves that side of the window open.
type PromoAd struct {
	ID          string     `json:"id" db:"id"`
	BusinessID  string     `json:"businessId,omitempty" db:"business_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	City        string     `json:"city,omitempty" db:"city"`
	Address     string     `json:"address,omitempty" db:"address"`
	Location    *geo.Point `json:"location,omitempty" db:"-"`
	ValidFrom   time.Time  `json:"validFrom" db:"valid_from"`
	ValidTo     time.Time  `json:"validTo" db:"valid_to"`
	IsActive    bool       `json:"active" db:"is_active"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsCurrentlyActive is derived on every read: the stored flag must be set and
// now must fall inside the validity window.
func (p *PromoAd) IsCurrentlyActive(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if !p.ValidFrom.IsZero() && now.Before(p.ValidFrom) {
		return false
	}
	if !p.ValidTo.IsZero() && now.After(p.ValidTo) {
		return false
	}
	return true
}
