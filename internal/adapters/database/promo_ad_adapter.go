package database

import (
	"database/sql"
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/postgres"
)

type promoAdRow struct {
	ID          string          `db:"id"`
	BusinessID  sql.NullString  `db:"business_id"`
	Title       string          `db:"title"`
	Description sql.NullString  `db:"description"`
	City        sql.NullString  `db:"city"`
	Address     sql.NullString  `db:"address"`
	Latitude    sql.NullFloat64 `db:"latitude"`
	Longitude   sql.NullFloat64 `db:"longitude"`
	ValidFrom   sql.NullTime    `db:"valid_from"`
	ValidTo     sql.NullTime    `db:"valid_to"`
	IsActive    bool            `db:"is_active"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	DistanceKm  sql.NullFloat64 `db:"distance_km"`
}

var promoAdColumns = []interface{}{
	"id", "business_id", "title", "description", "city", "address", "latitude", "longitude",
	"valid_from", "valid_to", "is_active", "created_at", "updated_at",
}

// PromoAdAdapter implements the PromoAdRepository interface
type PromoAdAdapter struct {
	*listingAdapter[*entities.PromoAd, predicates.PromoAd, promoAdRow]
}

// NewPromoAdAdapter creates a new promo ad adapter
func NewPromoAdAdapter(client *postgres.Client) repositories.PromoAdRepository {
	return &PromoAdAdapter{newListingAdapter(client, table[*entities.PromoAd, predicates.PromoAd, promoAdRow]{
		name:      "promo_ads",
		kind:      "promo ad",
		columns:   promoAdColumns,
		titleCol:  "title",
		where:     promoAdConditions,
		matchNone: func(p predicates.PromoAd) bool { return p.MatchNone },
		toEntity:  promoAdFromRow,
		id:        func(a *entities.PromoAd) string { return a.ID },
		distance:  func(r *promoAdRow) sql.NullFloat64 { return r.DistanceKm },
	})}
}

func promoAdFromRow(r *promoAdRow) *entities.PromoAd {
	return &entities.PromoAd{
		ID:          r.ID,
		BusinessID:  nullString(r.BusinessID),
		Title:       r.Title,
		Description: nullString(r.Description),
		City:        nullString(r.City),
		Address:     nullString(r.Address),
		Location:    pointFrom(r.Latitude, r.Longitude),
		ValidFrom:   nullTime(r.ValidFrom),
		ValidTo:     nullTime(r.ValidTo),
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
