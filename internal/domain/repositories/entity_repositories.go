package repositories

import (
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
)

// BusinessRepository defines the interface for business data operations
type BusinessRepository interface {
	ListingRepository[*entities.Business, predicates.Business]
}

// SaleAdRepository defines the interface for sale ad data operations
type SaleAdRepository interface {
	ListingRepository[*entities.SaleAd, predicates.SaleAd]
}

// PromoAdRepository defines the interface for promo ad data operations
type PromoAdRepository interface {
	ListingRepository[*entities.PromoAd, predicates.PromoAd]
}
